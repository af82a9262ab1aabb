// Package lock implements the seat lock manager: the single entry
// point for every EventSeat status transition.  Both the request
// path (ad-hoc locks, reservation confirm/pay/cancel) and the
// expiry sweeper funnel their mutations through a Manager so the
// free→held→paid/free state machine is enforced in exactly one
// place.
//
// Methods operate inside a caller-supplied *sql.Tx and return the
// transitions they performed.  Callers announce those transitions
// to the notification hub with Announce only after tx.Commit()
// succeeds; a rolled-back transaction must produce no broadcast.
package lock

import (
    "context"
    "database/sql"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/repository"
)

// Announcer receives committed transitions.  *hub.Hub satisfies it.
type Announcer interface {
    Broadcast(ctx context.Context, eventID, seatID uint64, status model.SeatStatus)
}

// Transition records one committed seat status change.
type Transition struct {
    EventID uint64
    SeatID  uint64
    Status  model.SeatStatus
}

// Result is the outcome of a TryLock call.  A request is granted as
// a whole or not at all: Granted and Rejected are never both
// non-empty after the call returns without error.
type Result struct {
    Granted     []uint64
    Rejected    []uint64
    LockedUntil time.Time
    Transitions []Transition
}

// Manager grants, commits and releases seat holds atomically.  It
// is TTL-agnostic: callers choose the hold duration (10 minutes for
// a single ad-hoc lock, 15 for a reservation confirm).
type Manager struct {
    seats *repository.EventSeatRepo
    hub   Announcer
}

// NewManager builds a Manager over the event seat repository.
func NewManager(seats *repository.EventSeatRepo, hub Announcer) *Manager {
    return &Manager{seats: seats, hub: hub}
}

// TryLock attempts to hold every seat in seatIDs for holderID until
// now+ttl.  A seat is available when it is Free or when its
// ReservedTemp deadline has already passed (lazy expiry).  The
// check and the status write are one conditional UPDATE, so two
// concurrent requests for overlapping seats serialize on the row
// locks and exactly one observes all rows available.
//
// When any seat is unavailable the whole call fails with
// repository.ErrConflict, the transaction is rolled back by the
// caller, and Result.Rejected carries the ids that blocked the
// request.  No partial hold is ever committed.
func (m *Manager) TryLock(ctx context.Context, tx *sql.Tx, eventID, holderID uint64, seatIDs []uint64, ttl time.Duration, now time.Time) (Result, error) {
    until := now.Add(ttl).UTC()
    res := Result{LockedUntil: until}
    // Check first so a conflict reports exactly the blocking seats.
    // Running the check after the UPDATE would see the rows the UPDATE
    // already flipped inside this transaction as live holds.
    blocked, err := m.seats.UnavailableTx(ctx, tx, eventID, seatIDs, now, 0)
    if err != nil {
        return res, err
    }
    if len(blocked) > 0 {
        res.Rejected = blocked
        return res, repository.ErrConflict
    }
    n, err := m.seats.LockTx(ctx, tx, eventID, holderID, seatIDs, until, now)
    if err != nil {
        return res, err
    }
    if n != int64(len(seatIDs)) {
        // A competing transaction committed between the check and the
        // UPDATE. The check above saw no hold by holderID on any
        // requested seat, so every hold now carrying holderID was
        // written by this UPDATE; skipping those leaves the genuine
        // blockers. The caller rolls back, undoing the rows touched.
        res.Rejected, err = m.seats.UnavailableTx(ctx, tx, eventID, seatIDs, now, holderID)
        if err != nil {
            return res, err
        }
        return res, repository.ErrConflict
    }
    res.Granted = seatIDs
    res.Transitions = transitions(eventID, seatIDs, model.SeatReservedTemp)
    return res, nil
}

// Commit transitions held seats to Paid and clears their deadlines.
// The write is conditional on holderID still holding every seat: a
// hold that lapsed and was reclaimed by another user fails the whole
// commit with repository.ErrConflict, and the caller rolls back.
func (m *Manager) Commit(ctx context.Context, tx *sql.Tx, eventID, holderID uint64, seatIDs []uint64) ([]Transition, error) {
    n, err := m.seats.MarkPaidTx(ctx, tx, eventID, holderID, seatIDs)
    if err != nil {
        return nil, err
    }
    if n != int64(len(seatIDs)) {
        return nil, repository.ErrConflict
    }
    return transitions(eventID, seatIDs, model.SeatPaid), nil
}

// Release returns every non-Paid seat in the set to Free, clearing
// deadline and holder.  Releasing an already-Free seat is a no-op,
// not an error; only seats that actually changed produce a
// transition.
func (m *Manager) Release(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) ([]Transition, error) {
    n, err := m.seats.ReleaseTx(ctx, tx, eventID, seatIDs)
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, nil
    }
    // RowsAffected tells how many rows changed but not which; the
    // released set is reported as a whole. Announcing Free for a
    // seat that was already Free is harmless under the at-most-once,
    // re-fetch-to-reconcile contract.
    return transitions(eventID, seatIDs, model.SeatFree), nil
}

// Announce broadcasts committed transitions to the hub.  Call it
// only after the owning transaction committed.
func (m *Manager) Announce(ctx context.Context, ts []Transition) {
    for _, t := range ts {
        m.hub.Broadcast(ctx, t.EventID, t.SeatID, t.Status)
    }
}

func transitions(eventID uint64, seatIDs []uint64, status model.SeatStatus) []Transition {
    ts := make([]Transition, 0, len(seatIDs))
    for _, sid := range seatIDs {
        ts = append(ts, Transition{EventID: eventID, SeatID: sid, Status: status})
    }
    return ts
}
