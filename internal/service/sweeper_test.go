package service

import (
    "context"
    "testing"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
)

func TestSweepReleasesExpiredHoldsAndCancelsReservations(t *testing.T) {
    f := newFixture(t, 3)
    ctx := context.Background()

    // Seat 0 carries an ad-hoc lock, seats 1-2 a confirmed reservation.
    if _, err := f.svc.LockSeat(ctx, 1, f.eventID, f.seats[0]); err != nil {
        t.Fatalf("lock seat: %v", err)
    }
    res, err := f.svc.Create(ctx, 2, f.eventID, f.seats[1:])
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    announced := f.rec.count()

    // Both TTLs have lapsed by +20m.
    released, err := f.sweeper.SweepOnce(ctx, time.Now().UTC().Add(20*time.Minute))
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if released != 3 {
        t.Fatalf("released %d seats, want 3", released)
    }
    for _, sid := range f.seats {
        if st := f.seatStatus(t, sid); st != model.SeatFree {
            t.Fatalf("seat %d status %v, want Free", sid, st)
        }
    }
    if st := f.reservationStatus(t, res.ID); st != model.ReservationCanceled {
        t.Fatalf("reservation status %v, want Canceled", st)
    }
    if got := f.rec.count() - announced; got != 3 {
        t.Fatalf("announced %d transitions, want 3", got)
    }
}

func TestSweepSparesLiveHoldsAndPaidSeats(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats[:1])
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := f.svc.Pay(ctx, res.ID, 1); err != nil {
        t.Fatalf("pay: %v", err)
    }
    if _, err := f.svc.LockSeat(ctx, 2, f.eventID, f.seats[1]); err != nil {
        t.Fatalf("lock: %v", err)
    }

    // Within the TTL nothing is expired: the paid seat has no
    // deadline at all and the ad-hoc hold is still live.
    released, err := f.sweeper.SweepOnce(ctx, time.Now().UTC().Add(time.Minute))
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if released != 0 {
        t.Fatalf("released %d, want 0", released)
    }
    if st := f.seatStatus(t, f.seats[0]); st != model.SeatPaid {
        t.Fatalf("paid seat degraded to %v", st)
    }
    if st := f.seatStatus(t, f.seats[1]); st != model.SeatReservedTemp {
        t.Fatalf("live hold degraded to %v", st)
    }

    // Even far in the future the paid seat stays paid.
    released, err = f.sweeper.SweepOnce(ctx, time.Now().UTC().Add(time.Hour))
    if err != nil {
        t.Fatalf("late sweep: %v", err)
    }
    if released != 1 {
        t.Fatalf("late sweep released %d, want 1", released)
    }
    if st := f.seatStatus(t, f.seats[0]); st != model.SeatPaid {
        t.Fatalf("paid seat swept to %v", st)
    }
}

func TestSweepIsIdempotent(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    if _, err := f.svc.Create(ctx, 1, f.eventID, f.seats); err != nil {
        t.Fatalf("create: %v", err)
    }
    later := time.Now().UTC().Add(20 * time.Minute)

    if n, err := f.sweeper.SweepOnce(ctx, later); err != nil || n != 1 {
        t.Fatalf("first sweep: n=%d err=%v", n, err)
    }
    if n, err := f.sweeper.SweepOnce(ctx, later); err != nil || n != 0 {
        t.Fatalf("second sweep: n=%d err=%v", n, err)
    }
}

func TestSweepOnEmptyDatabaseWritesNothing(t *testing.T) {
    f := newFixture(t, 1)
    n, err := f.sweeper.SweepOnce(context.Background(), time.Now().UTC())
    if err != nil {
        t.Fatalf("sweep: %v", err)
    }
    if n != 0 {
        t.Fatalf("released %d on empty db", n)
    }
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
    f := newFixture(t, 1)
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan error, 1)
    go func() { done <- f.sweeper.Run(ctx) }()
    cancel()
    select {
    case err := <-done:
        if err != nil {
            t.Fatalf("Run returned %v", err)
        }
    case <-time.After(2 * time.Second):
        t.Fatal("Run did not stop after cancel")
    }
}
