package service

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/misterticket/seat-reservation/internal/lock"
    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/repository"
)

// Sweeper reclaims expired holds in the background.  It is the only
// caller of the lock manager besides the reservation coordinator,
// and it goes through the exact same release path, so the state
// machine is enforced in one place for both.
type Sweeper struct {
    eventSeats   *repository.EventSeatRepo
    reservations *repository.ReservationRepo
    locks        *lock.Manager
    initialDelay time.Duration
    interval     time.Duration
    log          *zap.SugaredLogger
}

// NewSweeper builds a Sweeper.  Zero durations fall back to the
// defaults: 10s startup delay, 30s ticks.
func NewSweeper(eventSeats *repository.EventSeatRepo, reservations *repository.ReservationRepo, locks *lock.Manager, initialDelay, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
    if initialDelay <= 0 {
        initialDelay = 10 * time.Second
    }
    if interval <= 0 {
        interval = 30 * time.Second
    }
    return &Sweeper{
        eventSeats:   eventSeats,
        reservations: reservations,
        locks:        locks,
        initialDelay: initialDelay,
        interval:     interval,
        log:          log,
    }
}

// Run loops until ctx is canceled.  A failed sweep is logged and
// the loop continues on the next tick; it never terminates the
// process or skips future cycles.
func (s *Sweeper) Run(ctx context.Context) error {
    select {
    case <-ctx.Done():
        return nil
    case <-time.After(s.initialDelay):
    }
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        if released, err := s.SweepOnce(ctx, time.Now().UTC()); err != nil {
            s.log.Errorw("sweep failed", "err", err)
        } else if released > 0 {
            s.log.Infow("sweep released expired holds", "seats", released)
        }
        select {
        case <-ctx.Done():
            return nil
        case <-ticker.C:
        }
    }
}

// SweepOnce performs one scan-and-release pass at the given
// instant.  Every ReservedTemp seat whose deadline passed is
// released, and the OnGoing reservation of its holder that still
// references the seat is canceled, all persisted in one
// transaction.  A pass that finds nothing writes nothing.  Returns
// the number of seats released.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
    tx, err := s.eventSeats.DB().BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    expired, err := s.eventSeats.ExpiredTx(ctx, tx, now)
    if err != nil {
        return 0, err
    }
    if len(expired) == 0 {
        // Nothing to do; skip the commit entirely.
        return 0, tx.Rollback()
    }

    // Cancel the reservations owning the expired holds. Several
    // seats of one reservation may expire in the same pass; the
    // compare-and-set transition makes the repeat cancels no-ops.
    for _, h := range expired {
        if h.UserID == nil {
            continue
        }
        resID, found, err := s.reservations.FindOnGoingBySeatTx(ctx, tx, *h.UserID, h.EventID, h.SeatID)
        if err != nil {
            return 0, err
        }
        if !found {
            continue // ad-hoc lock without a reservation
        }
        if _, err := s.reservations.TransitionTx(ctx, tx, resID, model.ReservationOnGoing, model.ReservationCanceled); err != nil {
            return 0, err
        }
    }

    // Release per event through the lock manager.
    byEvent := make(map[uint64][]uint64)
    for _, h := range expired {
        byEvent[h.EventID] = append(byEvent[h.EventID], h.SeatID)
    }
    var transitions []lock.Transition
    for eventID, seatIDs := range byEvent {
        ts, err := s.locks.Release(ctx, tx, eventID, seatIDs)
        if err != nil {
            return 0, err
        }
        transitions = append(transitions, ts...)
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    s.locks.Announce(ctx, transitions)
    return len(expired), nil
}
