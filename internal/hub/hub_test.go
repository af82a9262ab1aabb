package hub

import (
    "context"
    "testing"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
    h := New(nil, "", nil)
    id1, ch1 := h.Subscribe(4)
    id2, ch2 := h.Subscribe(4)
    defer h.Unsubscribe(id1)
    defer h.Unsubscribe(id2)

    h.Broadcast(context.Background(), 7, 42, model.SeatReservedTemp)

    for i, ch := range []<-chan Update{ch1, ch2} {
        select {
        case u := <-ch:
            if u.EventID != 7 || u.SeatID != 42 || u.Status != model.SeatReservedTemp {
                t.Fatalf("subscriber %d got %+v", i, u)
            }
        case <-time.After(time.Second):
            t.Fatalf("subscriber %d got nothing", i)
        }
    }
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
    h := New(nil, "", nil)
    id, ch := h.Subscribe(1)
    defer h.Unsubscribe(id)

    // First update fills the buffer, the second must be dropped
    // without blocking the broadcaster.
    h.Broadcast(context.Background(), 1, 1, model.SeatReservedTemp)
    h.Broadcast(context.Background(), 1, 2, model.SeatReservedTemp)

    u := <-ch
    if u.SeatID != 1 {
        t.Fatalf("expected first update, got seat %d", u.SeatID)
    }
    select {
    case u := <-ch:
        t.Fatalf("expected drop, got %+v", u)
    default:
    }
}

func TestUnsubscribeClosesChannel(t *testing.T) {
    h := New(nil, "", nil)
    id, ch := h.Subscribe(1)
    if h.Subscribers() != 1 {
        t.Fatalf("expected 1 subscriber, got %d", h.Subscribers())
    }
    h.Unsubscribe(id)
    if h.Subscribers() != 0 {
        t.Fatalf("expected 0 subscribers, got %d", h.Subscribers())
    }
    if _, open := <-ch; open {
        t.Fatal("channel still open after unsubscribe")
    }
    // A second unsubscribe of the same id must be a no-op.
    h.Unsubscribe(id)
}

func TestArgumentsArePositional(t *testing.T) {
    u := Update{EventID: 3, SeatID: 9, Status: model.SeatPaid}
    got := u.Arguments()
    want := [3]uint64{3, 9, 2}
    if got != want {
        t.Fatalf("got %v, want %v", got, want)
    }
}

func TestRunWithoutRedisWaitsForCancel(t *testing.T) {
    h := New(nil, "", nil)
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan error, 1)
    go func() { done <- h.Run(ctx) }()
    cancel()
    select {
    case err := <-done:
        if err != nil {
            t.Fatalf("Run returned %v", err)
        }
    case <-time.After(time.Second):
        t.Fatal("Run did not return after cancel")
    }
}
