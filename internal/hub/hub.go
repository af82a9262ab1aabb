// Package hub implements the seat-status notification channel: a
// fire-and-forget broadcast of committed seat transitions to every
// connected observer.  Delivery is best effort and at most once; a
// client that (re)connects must re-fetch the seat map instead of
// relying on the hub for catch-up.
package hub

import (
    "context"
    "encoding/json"
    "sync"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/misterticket/seat-reservation/internal/model"
)

// EventName is the message name pushed to subscribers for every
// committed seat transition.  The payload is positional:
// [eventId, seatId, statusOrdinal].
const EventName = "ReceiveSeatStatusUpdate"

// Update is one committed transition.
type Update struct {
    EventID uint64
    SeatID  uint64
    Status  model.SeatStatus
}

// Arguments returns the positional wire payload.
func (u Update) Arguments() [3]uint64 {
    return [3]uint64{u.EventID, u.SeatID, uint64(u.Status)}
}

// Hub fans committed transitions out to local subscribers.  When a
// Redis client is configured it doubles as a backplane: broadcasts
// are published to a pub/sub channel and the run loop feeds
// everything received there (including our own messages) back to
// the local subscribers, so multiple server processes share one
// audience.  Without Redis the hub delivers locally only.
type Hub struct {
    mu     sync.RWMutex
    nextID uint64
    subs   map[uint64]chan Update

    rdb     *redis.Client
    channel string
    log     *zap.SugaredLogger
}

// New creates a Hub.  rdb may be nil, which disables the backplane.
func New(rdb *redis.Client, channel string, log *zap.SugaredLogger) *Hub {
    if channel == "" {
        channel = "seat.status"
    }
    return &Hub{
        subs:    make(map[uint64]chan Update),
        rdb:     rdb,
        channel: channel,
        log:     log,
    }
}

// Subscribe registers a new observer and returns its id plus the
// update channel.  The buffer bounds how far a slow consumer may
// lag; once full, further updates to that consumer are dropped.
func (h *Hub) Subscribe(buffer int) (uint64, <-chan Update) {
    if buffer < 1 {
        buffer = 16
    }
    ch := make(chan Update, buffer)
    h.mu.Lock()
    h.nextID++
    id := h.nextID
    h.subs[id] = ch
    h.mu.Unlock()
    return id, ch
}

// Unsubscribe removes an observer and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
    h.mu.Lock()
    if ch, ok := h.subs[id]; ok {
        delete(h.subs, id)
        close(ch)
    }
    h.mu.Unlock()
}

// Subscribers reports the current number of observers.
func (h *Hub) Subscribers() int {
    h.mu.RLock()
    defer h.mu.RUnlock()
    return len(h.subs)
}

// Broadcast pushes one committed transition to all observers.  It
// must be called only after the underlying transaction committed:
// a failed broadcast never rolls anything back, it is logged and
// forgotten.  The call never blocks on a slow subscriber.
func (h *Hub) Broadcast(ctx context.Context, eventID, seatID uint64, status model.SeatStatus) {
    u := Update{EventID: eventID, SeatID: seatID, Status: status}
    if h.rdb == nil {
        h.deliver(u)
        return
    }
    payload, err := json.Marshal(u.Arguments())
    if err != nil {
        h.log.Errorw("hub: marshal update", "err", err)
        return
    }
    if err := h.rdb.Publish(ctx, h.channel, payload).Err(); err != nil {
        // Backplane down: fall back to local delivery so in-process
        // observers still see the transition.
        h.log.Warnw("hub: publish failed, delivering locally", "err", err)
        h.deliver(u)
    }
}

// deliver fans one update out to the local subscribers.  Sends are
// non-blocking; a full buffer drops the update for that subscriber
// only, preserving the at-most-once contract.
func (h *Hub) deliver(u Update) {
    h.mu.RLock()
    defer h.mu.RUnlock()
    for _, ch := range h.subs {
        select {
        case ch <- u:
        default:
        }
    }
}

// Run consumes the Redis backplane channel until ctx is canceled,
// feeding received transitions to the local subscribers.  With no
// Redis client it simply waits for cancellation so it can still be
// supervised like the other background tasks.  Run always returns
// nil: losing the backplane degrades delivery, it does not bring
// the process down.
func (h *Hub) Run(ctx context.Context) error {
    if h.rdb == nil {
        <-ctx.Done()
        return nil
    }
    sub := h.rdb.Subscribe(ctx, h.channel)
    defer func() { _ = sub.Close() }()
    msgs := sub.Channel()
    for {
        select {
        case <-ctx.Done():
            return nil
        case msg, ok := <-msgs:
            if !ok {
                return nil
            }
            var args [3]uint64
            if err := json.Unmarshal([]byte(msg.Payload), &args); err != nil {
                h.log.Warnw("hub: bad backplane payload", "err", err)
                continue
            }
            h.deliver(Update{
                EventID: args[0],
                SeatID:  args[1],
                Status:  model.SeatStatus(args[2]),
            })
        }
    }
}
