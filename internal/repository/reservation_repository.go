package repository

import (
    "context"
    "database/sql"

    "github.com/misterticket/seat-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations and
// reservation_seats tables.  Status changes are guarded with a
// compare-and-set so that two racing transitions on the same
// reservation can never both succeed.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the provided
// database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts the reservation row plus one reservation_seats
// row per seat snapshot, all within the caller's transaction.  The
// generated id is written back into res.ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    result, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (user_id, event_id, status, total_cents, created_at) VALUES (?,?,?,?,?)`,
        res.UserID, res.EventID, res.Status, res.TotalCents, res.CreatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    if len(res.Seats) == 0 {
        return nil
    }
    query := `INSERT INTO reservation_seats (reservation_id, seat_id, price_cents) VALUES `
    args := make([]interface{}, 0, len(res.Seats)*3)
    for i := range res.Seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        res.Seats[i].ReservationID = res.ID
        args = append(args, res.ID, res.Seats[i].SeatID, res.Seats[i].PriceCents)
    }
    _, err = tx.ExecContext(ctx, query, args...)
    return err
}

// scanReservation reads one reservation row without its seats.
func scanReservation(row *sql.Row) (model.Reservation, error) {
    var res model.Reservation
    err := row.Scan(&res.ID, &res.UserID, &res.EventID, &res.Status, &res.TotalCents, &res.CreatedAt)
    if err == sql.ErrNoRows {
        return model.Reservation{}, ErrReservationNotFound
    }
    if err != nil {
        return model.Reservation{}, err
    }
    res.CreatedAt = res.CreatedAt.UTC()
    return res, nil
}

const reservationColumns = `id, user_id, event_id, status, total_cents, created_at`

// GetByID loads a reservation with its seat snapshots.  Returns
// ErrReservationNotFound when no row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ? LIMIT 1`, id))
    if err != nil {
        return model.Reservation{}, err
    }
    res.Seats, err = r.seats(ctx, r.db.QueryContext, id)
    return res, err
}

// GetTx is GetByID inside the caller's transaction.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
    res, err := scanReservation(tx.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ? LIMIT 1`, id))
    if err != nil {
        return model.Reservation{}, err
    }
    res.Seats, err = r.seats(ctx, tx.QueryContext, id)
    return res, err
}

type queryFunc func(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

func (r *ReservationRepo) seats(ctx context.Context, query queryFunc, reservationID uint64) ([]model.ReservationSeat, error) {
    rows, err := query(ctx,
        `SELECT id, reservation_id, seat_id, price_cents FROM reservation_seats
          WHERE reservation_id = ? ORDER BY id`, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var seats []model.ReservationSeat
    for rows.Next() {
        var s model.ReservationSeat
        if err := rows.Scan(&s.ID, &s.ReservationID, &s.SeatID, &s.PriceCents); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    return seats, rows.Err()
}

// TransitionTx performs a compare-and-set status change: the update
// applies only when the reservation is still in the `from` status.
// It reports whether a row was changed; false means the reservation
// had already left `from`, which callers surface as ErrInvalidState.
func (r *ReservationRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.ReservationStatus) (bool, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`, to, id, from)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// ListByUser returns the user's reservations, newest first, each
// with its seat snapshots.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations
          WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(&res.ID, &res.UserID, &res.EventID, &res.Status, &res.TotalCents, &res.CreatedAt); err != nil {
            return nil, err
        }
        res.CreatedAt = res.CreatedAt.UTC()
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range out {
        out[i].Seats, err = r.seats(ctx, r.db.QueryContext, out[i].ID)
        if err != nil {
            return nil, err
        }
    }
    return out, nil
}

// FindOnGoingBySeatTx locates the OnGoing reservation of the given
// user that references the seat for the event.  The sweeper uses it
// to cancel the reservation owning an expired hold.  The boolean
// reports whether such a reservation exists.
func (r *ReservationRepo) FindOnGoingBySeatTx(ctx context.Context, tx *sql.Tx, userID, eventID, seatID uint64) (uint64, bool, error) {
    var id uint64
    err := tx.QueryRowContext(ctx,
        `SELECT r.id FROM reservations r
           JOIN reservation_seats rs ON rs.reservation_id = r.id
          WHERE r.user_id = ? AND r.event_id = ? AND r.status = ? AND rs.seat_id = ?
          ORDER BY r.id LIMIT 1`,
        userID, eventID, model.ReservationOnGoing, seatID).Scan(&id)
    if err == sql.ErrNoRows {
        return 0, false, nil
    }
    if err != nil {
        return 0, false, err
    }
    return id, true, nil
}

// StaleOnGoingIDsTx returns ids of the user's OnGoing reservations
// for the event that reference any of the given seats.  When a new
// reservation wins the lock on those seats, any such older
// reservation necessarily had its hold expire, and the coordinator
// cancels it in the same transaction so that at most one OnGoing
// reservation per (user, seat) exists.
func (r *ReservationRepo) StaleOnGoingIDsTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64, seatIDs []uint64) ([]uint64, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    q := `SELECT DISTINCT r.id FROM reservations r
            JOIN reservation_seats rs ON rs.reservation_id = r.id
           WHERE r.user_id = ? AND r.event_id = ? AND r.status = ?
             AND rs.seat_id IN (` + placeholders(len(seatIDs)) + `)`
    args := idArgs([]interface{}{userID, eventID, model.ReservationOnGoing}, seatIDs)
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// DeleteByEventTx removes all reservations of an event together with
// their seat snapshots and payment receipts.  Used only when the
// event is deleted.
func (r *ReservationRepo) DeleteByEventTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
    if _, err := tx.ExecContext(ctx,
        `DELETE FROM payments WHERE reservation_id IN
           (SELECT id FROM reservations WHERE event_id = ?)`, eventID); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx,
        `DELETE FROM reservation_seats WHERE reservation_id IN
           (SELECT id FROM reservations WHERE event_id = ?)`, eventID); err != nil {
        return err
    }
    _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE event_id = ?`, eventID)
    return err
}
