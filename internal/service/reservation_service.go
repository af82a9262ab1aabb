// Package service contains the reservation coordinator and the
// expiry sweeper: the two callers of the lock manager.  Every
// operation here runs inside one commit/rollback boundary; seat
// state and reservation state always move together or not at all.
package service

import (
    "context"
    "strings"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/misterticket/seat-reservation/internal/lock"
    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/queue"
    "github.com/misterticket/seat-reservation/internal/repository"
)

// Hold durations. The manager itself is TTL-agnostic; these are the
// two TTLs this service uses.
const (
    AdHocLockTTL   = 10 * time.Minute // single seat locked from the seat map
    ConfirmLockTTL = 15 * time.Minute // full reservation confirmation
)

// ReceiptPublisher pushes payment receipts to the message broker.
// queue.Publisher satisfies it; a nil publisher disables the
// integration.
type ReceiptPublisher interface {
    Publish(ctx context.Context, event queue.PaymentConfirmedEvent) error
}

// ConflictError carries the seats that blocked an all-or-nothing
// lock request so handlers can return them with the 409 response.
type ConflictError struct {
    SeatIDs []uint64
}

func (e *ConflictError) Error() string { return "seat conflict" }

// Unwrap makes errors.Is(err, repository.ErrConflict) hold.
func (e *ConflictError) Unwrap() error { return repository.ErrConflict }

// ReservationService coordinates multi-seat reservations: create
// with holds, pay, cancel, and the owner-scoped queries.
type ReservationService struct {
    events       *repository.EventRepo
    seats        *repository.SeatRepo
    eventSeats   *repository.EventSeatRepo
    reservations *repository.ReservationRepo
    payments     *repository.PaymentRepo
    locks        *lock.Manager
    receipts     ReceiptPublisher
    log          *zap.SugaredLogger
}

// NewReservationService wires the coordinator.  receipts may be nil.
func NewReservationService(
    events *repository.EventRepo,
    seats *repository.SeatRepo,
    eventSeats *repository.EventSeatRepo,
    reservations *repository.ReservationRepo,
    payments *repository.PaymentRepo,
    locks *lock.Manager,
    receipts ReceiptPublisher,
    log *zap.SugaredLogger,
) *ReservationService {
    if events == nil || seats == nil || eventSeats == nil || reservations == nil || payments == nil || locks == nil {
        panic("nil dependency passed to NewReservationService")
    }
    return &ReservationService{
        events:       events,
        seats:        seats,
        eventSeats:   eventSeats,
        reservations: reservations,
        payments:     payments,
        locks:        locks,
        receipts:     receipts,
        log:          log,
    }
}

// dedupe drops zero and repeated ids while preserving order.
func dedupe(ids []uint64) []uint64 {
    out := make([]uint64, 0, len(ids))
    seen := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        out = append(out, id)
    }
    return out
}

// Create validates the seat set, acquires the 15-minute holds and
// persists the reservation, all in one transaction.  Failure modes:
// ErrEventNotFound, ErrSeatNotFound (an id does not belong to the
// event), ErrInvalidState (empty set), *ConflictError (some seat is
// paid or held with a live deadline).  On conflict nothing is
// created and no seat changes status.
func (s *ReservationService) Create(ctx context.Context, userID, eventID uint64, seatIDs []uint64) (model.Reservation, error) {
    seatIDs = dedupe(seatIDs)
    if len(seatIDs) == 0 {
        return model.Reservation{}, repository.ErrInvalidState
    }
    now := time.Now().UTC()

    tx, err := s.reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return model.Reservation{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    ok, err := s.events.ExistsTx(ctx, tx, eventID)
    if err != nil {
        return model.Reservation{}, err
    }
    if !ok {
        return model.Reservation{}, repository.ErrEventNotFound
    }

    // Set-equality check: every requested id must resolve to an
    // event seat of this event.
    n, err := s.eventSeats.CountForEventTx(ctx, tx, eventID, seatIDs)
    if err != nil {
        return model.Reservation{}, err
    }
    if n != len(seatIDs) {
        return model.Reservation{}, repository.ErrSeatNotFound
    }

    res, err := s.locks.TryLock(ctx, tx, eventID, userID, seatIDs, ConfirmLockTTL, now)
    if err != nil {
        if err == repository.ErrConflict {
            return model.Reservation{}, &ConflictError{SeatIDs: res.Rejected}
        }
        return model.Reservation{}, err
    }

    // Winning the lock for a seat that one of this user's older
    // OnGoing reservations still references means that older hold
    // lazily expired. Cancel the stale reservation here so at most
    // one OnGoing reservation per (user, seat) ever exists and the
    // sweeper's lookup stays unambiguous.
    stale, err := s.reservations.StaleOnGoingIDsTx(ctx, tx, userID, eventID, seatIDs)
    if err != nil {
        return model.Reservation{}, err
    }
    for _, id := range stale {
        if _, err := s.reservations.TransitionTx(ctx, tx, id, model.ReservationOnGoing, model.ReservationCanceled); err != nil {
            return model.Reservation{}, err
        }
    }

    prices, err := s.seats.PricesBySeatIDsTx(ctx, tx, seatIDs)
    if err != nil {
        return model.Reservation{}, err
    }
    reservation := model.Reservation{
        UserID:    userID,
        EventID:   eventID,
        Status:    model.ReservationOnGoing,
        CreatedAt: now,
    }
    for _, sid := range seatIDs {
        price, ok := prices[sid]
        if !ok {
            return model.Reservation{}, repository.ErrSeatNotFound
        }
        reservation.TotalCents += price
        reservation.Seats = append(reservation.Seats, model.ReservationSeat{SeatID: sid, PriceCents: price})
    }
    if err := s.reservations.CreateTx(ctx, tx, &reservation); err != nil {
        return model.Reservation{}, err
    }

    if err := tx.Commit(); err != nil {
        return model.Reservation{}, err
    }
    committed = true
    s.locks.Announce(ctx, res.Transitions)
    return reservation, nil
}

// LockSeat places a single 10-minute ad-hoc hold on one seat from
// the live seat map.  Unlike Create, the seat must be Free or
// lazily expired; an active hold by anyone, including the caller,
// is a conflict.  Returns the hold deadline.
func (s *ReservationService) LockSeat(ctx context.Context, userID, eventID, seatID uint64) (time.Time, error) {
    now := time.Now().UTC()
    if _, err := s.eventSeats.Get(ctx, eventID, seatID); err != nil {
        return time.Time{}, err // ErrSeatNotFound or storage error
    }
    tx, err := s.eventSeats.DB().BeginTx(ctx, nil)
    if err != nil {
        return time.Time{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    res, err := s.locks.TryLock(ctx, tx, eventID, userID, []uint64{seatID}, AdHocLockTTL, now)
    if err != nil {
        if err == repository.ErrConflict {
            return time.Time{}, &ConflictError{SeatIDs: res.Rejected}
        }
        return time.Time{}, err
    }
    if err := tx.Commit(); err != nil {
        return time.Time{}, err
    }
    committed = true
    s.locks.Announce(ctx, res.Transitions)
    return res.LockedUntil, nil
}

// Pay transitions an OnGoing reservation to Paid: the held seats
// become Paid, the reservation flips, and a receipt is appended,
// all in one transaction.  Re-invoking pay on a Paid reservation
// returns ErrInvalidState and writes nothing.  The receipt event is
// published to the broker only after the commit.
func (s *ReservationService) Pay(ctx context.Context, reservationID, requesterID uint64) (model.Payment, error) {
    tx, err := s.reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return model.Payment{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := s.reservations.GetTx(ctx, tx, reservationID)
    if err != nil {
        return model.Payment{}, err
    }
    ok, err := s.events.ExistsTx(ctx, tx, res.EventID)
    if err != nil {
        return model.Payment{}, err
    }
    if !ok {
        return model.Payment{}, repository.ErrEventNotFound
    }
    if res.UserID != requesterID {
        return model.Payment{}, repository.ErrForbidden
    }
    if res.Status != model.ReservationOnGoing {
        return model.Payment{}, repository.ErrInvalidState
    }
    changed, err := s.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationOnGoing, model.ReservationPaid)
    if err != nil {
        return model.Payment{}, err
    }
    if !changed {
        // Lost a race with a concurrent pay/cancel on the same
        // reservation.
        return model.Payment{}, repository.ErrInvalidState
    }

    seatIDs := make([]uint64, 0, len(res.Seats))
    for _, seat := range res.Seats {
        seatIDs = append(seatIDs, seat.SeatID)
    }
    transitions, err := s.locks.Commit(ctx, tx, res.EventID, res.UserID, seatIDs)
    if err != nil {
        // ErrConflict here means the hold lapsed and another user
        // reclaimed at least one seat before this payment arrived.
        return model.Payment{}, err
    }

    payment := model.Payment{
        ReservationID: res.ID,
        Reference:     paymentReference(),
        AmountCents:   res.TotalCents,
        Status:        model.PaymentSuccess,
        CreatedAt:     time.Now().UTC(),
    }
    if err := s.payments.CreateTx(ctx, tx, &payment); err != nil {
        return model.Payment{}, err
    }

    if err := tx.Commit(); err != nil {
        return model.Payment{}, err
    }
    committed = true
    s.locks.Announce(ctx, transitions)
    s.publishReceipt(ctx, res, payment, seatIDs)
    return payment, nil
}

// publishReceipt pushes the receipt event post-commit.  Failures are
// logged and swallowed; the payment already happened.
func (s *ReservationService) publishReceipt(ctx context.Context, res model.Reservation, payment model.Payment, seatIDs []uint64) {
    if s.receipts == nil {
        return
    }
    if err := s.receipts.Publish(ctx, queue.PaymentConfirmedEvent{
        ReservationID: res.ID,
        UserID:        res.UserID,
        EventID:       res.EventID,
        Reference:     payment.Reference,
        AmountCents:   payment.AmountCents,
        SeatIDs:       seatIDs,
        PaidAt:        payment.CreatedAt.Format(time.RFC3339),
    }); err != nil && s.log != nil {
        s.log.Warnw("receipt publish failed", "reservation_id", res.ID, "err", err)
    }
}

// Cancel transitions an OnGoing reservation to Canceled and frees
// its seats in one transaction.  The same preconditions as Pay
// apply; canceling a Paid or already-Canceled reservation returns
// ErrInvalidState.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, requesterID uint64) error {
    tx, err := s.reservations.DB().BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := s.reservations.GetTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    ok, err := s.events.ExistsTx(ctx, tx, res.EventID)
    if err != nil {
        return err
    }
    if !ok {
        return repository.ErrEventNotFound
    }
    if res.UserID != requesterID {
        return repository.ErrForbidden
    }
    if res.Status != model.ReservationOnGoing {
        return repository.ErrInvalidState
    }
    changed, err := s.reservations.TransitionTx(ctx, tx, res.ID, model.ReservationOnGoing, model.ReservationCanceled)
    if err != nil {
        return err
    }
    if !changed {
        return repository.ErrInvalidState
    }

    seatIDs := make([]uint64, 0, len(res.Seats))
    for _, seat := range res.Seats {
        seatIDs = append(seatIDs, seat.SeatID)
    }
    transitions, err := s.locks.Release(ctx, tx, res.EventID, seatIDs)
    if err != nil {
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    s.locks.Announce(ctx, transitions)
    return nil
}

// Get returns one reservation, owner-only.
func (s *ReservationService) Get(ctx context.Context, reservationID, requesterID uint64) (model.Reservation, error) {
    res, err := s.reservations.GetByID(ctx, reservationID)
    if err != nil {
        return model.Reservation{}, err
    }
    if res.UserID != requesterID {
        return model.Reservation{}, repository.ErrForbidden
    }
    return res, nil
}

// ListByUser returns the requester's reservations, newest first.
func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    return s.reservations.ListByUser(ctx, userID)
}

// paymentReference builds the receipt token: "PAY-" plus the first
// 8 characters of a fresh UUID.
func paymentReference() string {
    return "PAY-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}
