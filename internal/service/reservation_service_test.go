package service

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "go.uber.org/zap"

    "github.com/misterticket/seat-reservation/internal/hub"
    "github.com/misterticket/seat-reservation/internal/lock"
    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/queue"
    "github.com/misterticket/seat-reservation/internal/repository"
    "github.com/misterticket/seat-reservation/internal/testdb"
)

// announceRec records hub broadcasts.
type announceRec struct {
    mu  sync.Mutex
    got []hub.Update
}

func (r *announceRec) Broadcast(_ context.Context, eventID, seatID uint64, status model.SeatStatus) {
    r.mu.Lock()
    r.got = append(r.got, hub.Update{EventID: eventID, SeatID: seatID, Status: status})
    r.mu.Unlock()
}

func (r *announceRec) count() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.got)
}

// receiptRec records published payment receipts.
type receiptRec struct {
    mu  sync.Mutex
    got []queue.PaymentConfirmedEvent
}

func (r *receiptRec) Publish(_ context.Context, ev queue.PaymentConfirmedEvent) error {
    r.mu.Lock()
    r.got = append(r.got, ev)
    r.mu.Unlock()
    return nil
}

type fixture struct {
    db       *sql.DB
    svc      *ReservationService
    sweeper  *Sweeper
    rec      *announceRec
    receipts *receiptRec
    eventID  uint64
    seats    []uint64 // prices: 5000, 5100, 5200, ...
}

func newFixture(t *testing.T, seatCount int) *fixture {
    t.Helper()
    db := testdb.Open(t)

    res, err := db.Exec(`INSERT INTO scenes (name, max_rows, max_columns) VALUES ('Test', 1, ?)`, seatCount)
    if err != nil {
        t.Fatalf("seed scene: %v", err)
    }
    sceneID, _ := res.LastInsertId()
    res, err = db.Exec(`INSERT INTO price_zones (scene_id, name, price_cents) VALUES (?, 'Std', 5000)`, sceneID)
    if err != nil {
        t.Fatalf("seed zone: %v", err)
    }
    zoneID, _ := res.LastInsertId()
    res, err = db.Exec(`INSERT INTO events (scene_id, name, starts_at) VALUES (?, 'Show', ?)`,
        sceneID, time.Now().UTC().Add(24*time.Hour))
    if err != nil {
        t.Fatalf("seed event: %v", err)
    }
    eid, _ := res.LastInsertId()

    f := &fixture{db: db, rec: &announceRec{}, receipts: &receiptRec{}, eventID: uint64(eid)}
    for col := 0; col < seatCount; col++ {
        res, err = db.Exec(
            `INSERT INTO seats (scene_id, price_zone_id, row_no, col_no, number, price_cents) VALUES (?,?,0,?,?,?)`,
            sceneID, zoneID, col, "A", 5000+100*col)
        if err != nil {
            t.Fatalf("seed seat: %v", err)
        }
        sid, _ := res.LastInsertId()
        f.seats = append(f.seats, uint64(sid))
        if _, err := db.Exec(`INSERT INTO event_seats (event_id, seat_id, status) VALUES (?,?,0)`, eid, sid); err != nil {
            t.Fatalf("seed event seat: %v", err)
        }
    }

    log := zap.NewNop().Sugar()
    eventSeats := repository.NewEventSeatRepo(db)
    reservations := repository.NewReservationRepo(db)
    locks := lock.NewManager(eventSeats, f.rec)
    f.svc = NewReservationService(
        repository.NewEventRepo(db),
        repository.NewSeatRepo(db),
        eventSeats,
        reservations,
        repository.NewPaymentRepo(db),
        locks,
        f.receipts,
        log,
    )
    f.sweeper = NewSweeper(eventSeats, reservations, locks, time.Second, time.Second, log)
    return f
}

func (f *fixture) seatStatus(t *testing.T, seatID uint64) model.SeatStatus {
    t.Helper()
    var st uint8
    err := f.db.QueryRow(`SELECT status FROM event_seats WHERE event_id = ? AND seat_id = ?`, f.eventID, seatID).Scan(&st)
    if err != nil {
        t.Fatalf("read seat status: %v", err)
    }
    return model.SeatStatus(st)
}

func (f *fixture) reservationStatus(t *testing.T, id uint64) model.ReservationStatus {
    t.Helper()
    var st uint8
    if err := f.db.QueryRow(`SELECT status FROM reservations WHERE id = ?`, id).Scan(&st); err != nil {
        t.Fatalf("read reservation status: %v", err)
    }
    return model.ReservationStatus(st)
}

// expireSeats backdates the lock deadlines so lazy expiry kicks in
// without waiting out a real TTL.
func (f *fixture) expireSeats(t *testing.T, seatIDs ...uint64) {
    t.Helper()
    past := time.Now().UTC().Add(-time.Minute)
    for _, sid := range seatIDs {
        if _, err := f.db.Exec(
            `UPDATE event_seats SET locked_until = ? WHERE event_id = ? AND seat_id = ?`,
            past, f.eventID, sid); err != nil {
            t.Fatalf("expire seat %d: %v", sid, err)
        }
    }
}

func TestCreateHoldsSeatsAndSnapshotsPrices(t *testing.T) {
    f := newFixture(t, 3)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("Create: %v", err)
    }
    if res.ID == 0 {
        t.Fatal("reservation id not assigned")
    }
    if res.Status != model.ReservationOnGoing {
        t.Fatalf("status %v, want OnGoing", res.Status)
    }
    if want := uint32(5000 + 5100 + 5200); res.TotalCents != want {
        t.Fatalf("total %d, want %d", res.TotalCents, want)
    }
    if len(res.Seats) != 3 {
        t.Fatalf("snapshot has %d seats", len(res.Seats))
    }
    for _, sid := range f.seats {
        if st := f.seatStatus(t, sid); st != model.SeatReservedTemp {
            t.Fatalf("seat %d status %v", sid, st)
        }
    }
    if f.rec.count() != 3 {
        t.Fatalf("announced %d transitions, want 3", f.rec.count())
    }
}

func TestCreateRejectsDuplicateAndUnknownSeats(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    // Duplicates collapse instead of double-booking.
    res, err := f.svc.Create(ctx, 1, f.eventID, []uint64{f.seats[0], f.seats[0]})
    if err != nil {
        t.Fatalf("Create with duplicates: %v", err)
    }
    if len(res.Seats) != 1 {
        t.Fatalf("expected 1 seat, got %d", len(res.Seats))
    }

    if _, err := f.svc.Create(ctx, 1, f.eventID, []uint64{f.seats[1], 99999}); !errors.Is(err, repository.ErrSeatNotFound) {
        t.Fatalf("expected ErrSeatNotFound, got %v", err)
    }
    if _, err := f.svc.Create(ctx, 1, 99999, f.seats); !errors.Is(err, repository.ErrEventNotFound) {
        t.Fatalf("expected ErrEventNotFound, got %v", err)
    }
    if _, err := f.svc.Create(ctx, 1, f.eventID, nil); !errors.Is(err, repository.ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState for empty set, got %v", err)
    }
}

func TestCreateConflictIsAllOrNothing(t *testing.T) {
    f := newFixture(t, 3)
    ctx := context.Background()

    if _, err := f.svc.Create(ctx, 1, f.eventID, f.seats[1:2]); err != nil {
        t.Fatalf("first create: %v", err)
    }
    announced := f.rec.count()

    _, err := f.svc.Create(ctx, 2, f.eventID, f.seats)
    var conflict *ConflictError
    if !errors.As(err, &conflict) {
        t.Fatalf("expected ConflictError, got %v", err)
    }
    if !errors.Is(err, repository.ErrConflict) {
        t.Fatal("ConflictError must unwrap to ErrConflict")
    }
    if len(conflict.SeatIDs) != 1 || conflict.SeatIDs[0] != f.seats[1] {
        t.Fatalf("blockers %v, want [%d]", conflict.SeatIDs, f.seats[1])
    }

    // The losing request left no trace: outer seats Free, nothing
    // announced for the rolled-back transaction.
    if st := f.seatStatus(t, f.seats[0]); st != model.SeatFree {
        t.Fatalf("seat %d leaked to %v", f.seats[0], st)
    }
    if f.rec.count() != announced {
        t.Fatalf("rollback announced transitions: %d -> %d", announced, f.rec.count())
    }
}

func TestPayCompletesReservationOnce(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("create: %v", err)
    }

    payment, err := f.svc.Pay(ctx, res.ID, 1)
    if err != nil {
        t.Fatalf("pay: %v", err)
    }
    if payment.AmountCents != res.TotalCents {
        t.Fatalf("amount %d, want %d", payment.AmountCents, res.TotalCents)
    }
    if !strings.HasPrefix(payment.Reference, "PAY-") {
        t.Fatalf("reference %q lacks PAY- prefix", payment.Reference)
    }
    if payment.Status != model.PaymentSuccess {
        t.Fatalf("payment status %v", payment.Status)
    }
    if st := f.reservationStatus(t, res.ID); st != model.ReservationPaid {
        t.Fatalf("reservation status %v, want Paid", st)
    }
    for _, sid := range f.seats {
        if st := f.seatStatus(t, sid); st != model.SeatPaid {
            t.Fatalf("seat %d status %v, want Paid", sid, st)
        }
    }

    // Receipt went out exactly once with the seat snapshot.
    f.receipts.mu.Lock()
    if len(f.receipts.got) != 1 || f.receipts.got[0].ReservationID != res.ID || len(f.receipts.got[0].SeatIDs) != 2 {
        t.Fatalf("receipts %+v", f.receipts.got)
    }
    f.receipts.mu.Unlock()

    // Second pay must fail and write no second receipt row.
    if _, err := f.svc.Pay(ctx, res.ID, 1); !errors.Is(err, repository.ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on repay, got %v", err)
    }
    n, err := repository.NewPaymentRepo(f.db).CountByReservation(ctx, res.ID)
    if err != nil {
        t.Fatalf("count payments: %v", err)
    }
    if n != 1 {
        t.Fatalf("%d payment rows, want 1", n)
    }
}

func TestPayGuardsOwnershipAndExistence(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := f.svc.Pay(ctx, res.ID, 2); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("expected ErrForbidden, got %v", err)
    }
    if _, err := f.svc.Pay(ctx, 99999, 1); !errors.Is(err, repository.ErrReservationNotFound) {
        t.Fatalf("expected ErrReservationNotFound, got %v", err)
    }
    // The guard must not have flipped anything.
    if st := f.reservationStatus(t, res.ID); st != model.ReservationOnGoing {
        t.Fatalf("reservation status %v, want OnGoing", st)
    }
}

func TestPayFailsWhenHoldWasReclaimed(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    resA, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("create A: %v", err)
    }

    // A's hold lapses and B takes the seat.
    f.expireSeats(t, f.seats...)
    if _, err := f.svc.Create(ctx, 2, f.eventID, f.seats); err != nil {
        t.Fatalf("create B after expiry: %v", err)
    }

    if _, err := f.svc.Pay(ctx, resA.ID, 1); !errors.Is(err, repository.ErrConflict) {
        t.Fatalf("expected ErrConflict for reclaimed seat, got %v", err)
    }
    // B's hold survived A's failed payment.
    if st := f.seatStatus(t, f.seats[0]); st != model.SeatReservedTemp {
        t.Fatalf("seat status %v, want ReservedTemp", st)
    }
}

func TestCancelFreesSeats(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if err := f.svc.Cancel(ctx, res.ID, 1); err != nil {
        t.Fatalf("cancel: %v", err)
    }
    if st := f.reservationStatus(t, res.ID); st != model.ReservationCanceled {
        t.Fatalf("reservation status %v, want Canceled", st)
    }
    for _, sid := range f.seats {
        if st := f.seatStatus(t, sid); st != model.SeatFree {
            t.Fatalf("seat %d status %v, want Free", sid, st)
        }
    }

    if err := f.svc.Cancel(ctx, res.ID, 1); !errors.Is(err, repository.ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on double cancel, got %v", err)
    }
    if _, err := f.svc.Pay(ctx, res.ID, 1); !errors.Is(err, repository.ErrInvalidState) {
        t.Fatalf("expected ErrInvalidState on pay-after-cancel, got %v", err)
    }

    // The freed seats are immediately available to someone else.
    if _, err := f.svc.Create(ctx, 2, f.eventID, f.seats); err != nil {
        t.Fatalf("create after cancel: %v", err)
    }
}

func TestCreateCancelsOwnStaleReservation(t *testing.T) {
    f := newFixture(t, 1)
    ctx := context.Background()

    old, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("first create: %v", err)
    }
    f.expireSeats(t, f.seats...)

    // The same user re-books the seat; the stale OnGoing reservation
    // must flip to Canceled so only one OnGoing per seat remains.
    fresh, err := f.svc.Create(ctx, 1, f.eventID, f.seats)
    if err != nil {
        t.Fatalf("re-create: %v", err)
    }
    if st := f.reservationStatus(t, old.ID); st != model.ReservationCanceled {
        t.Fatalf("stale reservation status %v, want Canceled", st)
    }
    if st := f.reservationStatus(t, fresh.ID); st != model.ReservationOnGoing {
        t.Fatalf("fresh reservation status %v, want OnGoing", st)
    }
}

func TestLockSeatAdHoc(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    before := time.Now().UTC()
    until, err := f.svc.LockSeat(ctx, 1, f.eventID, f.seats[0])
    if err != nil {
        t.Fatalf("LockSeat: %v", err)
    }
    if until.Before(before.Add(AdHocLockTTL-time.Minute)) || until.After(before.Add(AdHocLockTTL+time.Minute)) {
        t.Fatalf("deadline %v not ~%v after %v", until, AdHocLockTTL, before)
    }
    if st := f.seatStatus(t, f.seats[0]); st != model.SeatReservedTemp {
        t.Fatalf("seat status %v", st)
    }

    // Another user cannot take the held seat.
    if _, err := f.svc.LockSeat(ctx, 2, f.eventID, f.seats[0]); !errors.Is(err, repository.ErrConflict) {
        t.Fatalf("expected conflict, got %v", err)
    }
    // Unknown seat reports not-found before any locking.
    if _, err := f.svc.LockSeat(ctx, 1, f.eventID, 99999); !errors.Is(err, repository.ErrSeatNotFound) {
        t.Fatalf("expected ErrSeatNotFound, got %v", err)
    }
}

func TestGetAndListAreOwnerScoped(t *testing.T) {
    f := newFixture(t, 2)
    ctx := context.Background()

    res, err := f.svc.Create(ctx, 1, f.eventID, f.seats[:1])
    if err != nil {
        t.Fatalf("create: %v", err)
    }

    got, err := f.svc.Get(ctx, res.ID, 1)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if got.ID != res.ID || len(got.Seats) != 1 {
        t.Fatalf("got %+v", got)
    }
    if _, err := f.svc.Get(ctx, res.ID, 2); !errors.Is(err, repository.ErrForbidden) {
        t.Fatalf("expected ErrForbidden, got %v", err)
    }

    list, err := f.svc.ListByUser(ctx, 1)
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(list) != 1 {
        t.Fatalf("list has %d entries", len(list))
    }
    other, err := f.svc.ListByUser(ctx, 2)
    if err != nil {
        t.Fatalf("list other: %v", err)
    }
    if len(other) != 0 {
        t.Fatalf("foreign list has %d entries", len(other))
    }
}
