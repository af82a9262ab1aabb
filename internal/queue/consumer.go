package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// StartConsumer connects to RabbitMQ, declares the payment.confirmed
// queue (durable) and consumes messages until ctx is canceled.
// Each message is appended to logs/payments.log in a single-line,
// human-friendly format.  The function runs a reconnect loop with
// exponential backoff; processing errors are logged and the message
// is rejected without requeue so a bad payload cannot wedge the
// queue.
func StartConsumer(ctx context.Context, log *zap.SugaredLogger) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return nil
        }
        conn, err := amqp.Dial(brokerURL())
        if err != nil {
            log.Warnw("payment-consumer: dial failed", "err", err, "retry_in", backoff)
            select {
            case <-ctx.Done():
                return nil
            case <-time.After(backoff):
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(ctx, conn, log); err != nil {
            log.Warnw("payment-consumer: consume loop ended", "err", err)
            _ = conn.Close()
            select {
            case <-ctx.Done():
                return nil
            case <-time.After(2 * time.Second):
            }
            continue
        }
        _ = conn.Close()
        return nil
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *zap.SugaredLogger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warnw("payment-consumer: set QoS failed", "err", err)
    }

    if _, err := ch.QueueDeclare(paymentQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(paymentQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return nil
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body); err != nil {
                log.Warnw("payment-consumer: handle message failed", "err", err)
                _ = d.Nack(false, false) // reject, do not requeue
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte) error {
    var ev PaymentConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "payments.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    seats := make([]string, 0, len(ev.SeatIDs))
    for _, id := range ev.SeatIDs {
        seats = append(seats, fmt.Sprintf("%d", id))
    }

    line := fmt.Sprintf("[%s] Payment confirmed | reference=%s | reservation_id=%d | user_id=%d | event_id=%d | amount=%d cents | seats=[%s]\n",
        ev.PaidAt, ev.Reference, ev.ReservationID, ev.UserID, ev.EventID, ev.AmountCents, strings.Join(seats, ","))

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
