package repository // repository for per-event seat availability rows

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
)

// EventSeatRepo encapsulates database access to the event_seats
// table.  Every status mutation goes through the lock manager, which
// calls the ...Tx methods below inside one transaction; nothing else
// in the codebase writes status, locked_until or reserved_by_user_id.
type EventSeatRepo struct {
    db *sql.DB
}

// NewEventSeatRepo constructs an EventSeatRepo bound to the given DB.
func NewEventSeatRepo(db *sql.DB) *EventSeatRepo { return &EventSeatRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *EventSeatRepo) DB() *sql.DB { return r.db }

// placeholders returns a comma separated list of n "?" markers.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// idArgs converts seat ids into []interface{} for ExecContext, with
// optional leading arguments prepended.
func idArgs(lead []interface{}, ids []uint64) []interface{} {
    args := make([]interface{}, 0, len(lead)+len(ids))
    args = append(args, lead...)
    for _, id := range ids {
        args = append(args, id)
    }
    return args
}

// CreateBulkTx inserts one Free event_seat row per seat id for the
// given event.  Called when an event is scheduled against a scene.
// Passing an empty slice has no effect and returns nil.
func (r *EventSeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) error {
    if len(seatIDs) == 0 {
        return nil
    }
    query := `INSERT INTO event_seats (event_id, seat_id, status) VALUES `
    args := make([]interface{}, 0, len(seatIDs)*3)
    for i, sid := range seatIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, eventID, sid, model.SeatFree)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// CountForEventTx returns how many of the given seat ids have an
// event_seat row for the event.  The reservation coordinator compares
// the count against the requested id count to reject sets containing
// ids that do not belong to the event.
func (r *EventSeatRepo) CountForEventTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) (int, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `SELECT COUNT(*) FROM event_seats WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
    var n int
    err := tx.QueryRowContext(ctx, q, idArgs([]interface{}{eventID}, seatIDs)...).Scan(&n)
    return n, err
}

// Get fetches a single event_seat row.  Returns ErrSeatNotFound when
// the seat is not configured for the event.
func (r *EventSeatRepo) Get(ctx context.Context, eventID, seatID uint64) (model.EventSeat, error) {
    var (
        es       model.EventSeat
        until    sql.NullTime
        reserved sql.NullInt64
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT id, event_id, seat_id, status, locked_until, reserved_by_user_id
           FROM event_seats WHERE event_id = ? AND seat_id = ? LIMIT 1`,
        eventID, seatID).Scan(&es.ID, &es.EventID, &es.SeatID, &es.Status, &until, &reserved)
    if err == sql.ErrNoRows {
        return model.EventSeat{}, ErrSeatNotFound
    }
    if err != nil {
        return model.EventSeat{}, err
    }
    if until.Valid {
        t := until.Time.UTC()
        es.LockedUntil = &t
    }
    if reserved.Valid {
        u := uint64(reserved.Int64)
        es.ReservedByUserID = &u
    }
    return es, nil
}

// LockTx attempts to place a hold on every given seat in one atomic
// statement.  A seat is lockable when it is Free, or ReservedTemp
// with a deadline at or before now (lazy expiry).  The returned
// count is the number of rows actually transitioned; callers must
// roll the transaction back when it is lower than len(seatIDs) so
// that a partial grant is never visible.
func (r *EventSeatRepo) LockTx(ctx context.Context, tx *sql.Tx, eventID, holderID uint64, seatIDs []uint64, until, now time.Time) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE event_seats
             SET status = ?, locked_until = ?, reserved_by_user_id = ?
           WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
             AND (status = ? OR (status = ? AND locked_until <= ?))`
    lead := []interface{}{
        model.SeatReservedTemp, until.UTC(), holderID, eventID,
    }
    args := idArgs(lead, seatIDs)
    args = append(args, model.SeatFree, model.SeatReservedTemp, now.UTC())
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// UnavailableTx reports which of the given seats cannot be locked at
// the supplied instant: Paid seats and live ReservedTemp holds.  When
// ignoreHolder is non-zero, live holds owned by that user are skipped;
// the lock path passes the requesting holder here so that rows its own
// UPDATE already flipped inside the uncommitted transaction are not
// counted as blockers.
func (r *EventSeatRepo) UnavailableTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, now time.Time, ignoreHolder uint64) ([]uint64, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    q := `SELECT seat_id FROM event_seats
           WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
             AND (status = ? OR (status = ? AND locked_until > ?`
    args := idArgs([]interface{}{eventID}, seatIDs)
    args = append(args, model.SeatPaid, model.SeatReservedTemp, now.UTC())
    if ignoreHolder != 0 {
        q += ` AND reserved_by_user_id <> ?`
        args = append(args, ignoreHolder)
    }
    q += `))
           ORDER BY seat_id`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []uint64
    for rows.Next() {
        var sid uint64
        if err := rows.Scan(&sid); err != nil {
            return nil, err
        }
        out = append(out, sid)
    }
    return out, rows.Err()
}

// MarkPaidTx transitions the given seats to Paid and clears their
// deadlines, but only where holderID still holds the seat.  A hold
// that lapsed and was reclaimed by someone else no longer matches,
// so the returned count falls short and the caller must abort.  A
// lapsed hold that nobody reclaimed still matches: the payment
// arrived before any competitor, which is the lazy-expiry contract.
func (r *EventSeatRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, eventID, holderID uint64, seatIDs []uint64) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE event_seats SET status = ?, locked_until = NULL
           WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
             AND status = ? AND reserved_by_user_id = ?`
    args := idArgs([]interface{}{model.SeatPaid, eventID}, seatIDs)
    args = append(args, model.SeatReservedTemp, holderID)
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReleaseTx returns every non-Paid seat in the set to Free, clearing
// deadline and holder.  Releasing a seat that is already Free is a
// no-op, which makes release idempotent.  The returned count is the
// number of rows that actually changed.
func (r *EventSeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    q := `UPDATE event_seats SET status = ?, locked_until = NULL, reserved_by_user_id = NULL
           WHERE event_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)
             AND status = ?`
    args := idArgs([]interface{}{model.SeatFree, eventID}, seatIDs)
    args = append(args, model.SeatReservedTemp)
    res, err := tx.ExecContext(ctx, q, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ExpiredHold identifies one ReservedTemp seat whose deadline has
// passed, together with the holder the sweeper needs to find the
// owning reservation.
type ExpiredHold struct {
    EventID uint64
    SeatID  uint64
    UserID  *uint64
}

// ExpiredTx scans all events for ReservedTemp seats whose deadline
// is at or before now.  The sweeper runs this at every tick.
func (r *EventSeatRepo) ExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]ExpiredHold, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT event_id, seat_id, reserved_by_user_id FROM event_seats
          WHERE status = ? AND locked_until IS NOT NULL AND locked_until <= ?`,
        model.SeatReservedTemp, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []ExpiredHold
    for rows.Next() {
        var (
            h        ExpiredHold
            reserved sql.NullInt64
        )
        if err := rows.Scan(&h.EventID, &h.SeatID, &reserved); err != nil {
            return nil, err
        }
        if reserved.Valid {
            u := uint64(reserved.Int64)
            h.UserID = &u
        }
        out = append(out, h)
    }
    return out, rows.Err()
}

// SeatState pairs a seat id with its status for the public seat map.
type SeatState struct {
    SeatID uint64           `json:"seat_id"`
    Status model.SeatStatus `json:"status"`
}

// ListNonFree returns the seats of an event that are not Free.
// Clients render everything absent from the result as available.
// Lazy expiry applies on read: a ReservedTemp seat whose deadline
// has passed is omitted, matching what a lock attempt would see.
func (r *EventSeatRepo) ListNonFree(ctx context.Context, eventID uint64, now time.Time) ([]SeatState, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT seat_id, status FROM event_seats
          WHERE event_id = ? AND status <> ?
            AND NOT (status = ? AND locked_until <= ?)
          ORDER BY seat_id`,
        eventID, model.SeatFree, model.SeatReservedTemp, now.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []SeatState{}
    for rows.Next() {
        var st SeatState
        if err := rows.Scan(&st.SeatID, &st.Status); err != nil {
            return nil, err
        }
        out = append(out, st)
    }
    return out, rows.Err()
}

// DeleteByEventTx removes all event_seat rows of an event.  Used
// only when the owning event is deleted.
func (r *EventSeatRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
    _, err := tx.ExecContext(ctx, `DELETE FROM event_seats WHERE event_id = ?`, eventID)
    return err
}
