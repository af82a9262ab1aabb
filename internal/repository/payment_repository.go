package repository

import (
    "context"
    "database/sql"

    "github.com/misterticket/seat-reservation/internal/model"
)

// PaymentRepo appends payment receipts.  Receipts are written once
// as part of a successful pay transaction and never updated, so
// there is no update or delete method.
type PaymentRepo struct {
    db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the provided
// database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx appends one receipt inside the caller's transaction and
// writes the generated id back.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO payments (reservation_id, reference, amount_cents, status, created_at) VALUES (?,?,?,?,?)`,
        p.ReservationID, p.Reference, p.AmountCents, p.Status, p.CreatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

// GetByReservation returns the receipt of a paid reservation.
// Returns sql.ErrNoRows unchanged when no receipt exists.
func (r *PaymentRepo) GetByReservation(ctx context.Context, reservationID uint64) (model.Payment, error) {
    var p model.Payment
    err := r.db.QueryRowContext(ctx,
        `SELECT id, reservation_id, reference, amount_cents, status, created_at
           FROM payments WHERE reservation_id = ? ORDER BY id LIMIT 1`, reservationID).
        Scan(&p.ID, &p.ReservationID, &p.Reference, &p.AmountCents, &p.Status, &p.CreatedAt)
    if err != nil {
        return model.Payment{}, err
    }
    p.CreatedAt = p.CreatedAt.UTC()
    return p, nil
}

// CountByReservation reports how many receipts exist for a
// reservation.  Used by tests to assert the pay path never
// duplicates receipts.
func (r *PaymentRepo) CountByReservation(ctx context.Context, reservationID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM payments WHERE reservation_id = ?`, reservationID).Scan(&n)
    return n, err
}
