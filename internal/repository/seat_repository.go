package repository // repository for scene, zone and seat records

import (
    "context"
    "database/sql"

    "github.com/misterticket/seat-reservation/internal/model"
)

// SeatRepo provides read access to the immutable seat geometry plus
// the bulk inserts used by the seed tooling.  Seat availability is
// not stored here; see EventSeatRepo.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// IDsBySceneTx returns the ids of every seat in a scene, ordered by
// grid position.  Event creation uses this to build the initial
// event_seats rows.
func (r *SeatRepo) IDsBySceneTx(ctx context.Context, tx *sql.Tx, sceneID uint64) ([]uint64, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT id FROM seats WHERE scene_id = ? ORDER BY row_no, col_no`, sceneID)
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

// PricesBySeatIDsTx returns a seat id to price map for the given
// seats.  The reservation coordinator snapshots these prices into
// reservation_seats.
func (r *SeatRepo) PricesBySeatIDsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) (map[uint64]uint32, error) {
    prices := make(map[uint64]uint32, len(seatIDs))
    if len(seatIDs) == 0 {
        return prices, nil
    }
    q := `SELECT id, price_cents FROM seats WHERE id IN (` + placeholders(len(seatIDs)) + `)`
    rows, err := tx.QueryContext(ctx, q, idArgs(nil, seatIDs)...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var (
            id    uint64
            price uint32
        )
        if err := rows.Scan(&id, &price); err != nil {
            return nil, err
        }
        prices[id] = price
    }
    return prices, rows.Err()
}

// ListByScene returns the full seat list of a scene for seat-map
// rendering.
func (r *SeatRepo) ListByScene(ctx context.Context, sceneID uint64) ([]model.Seat, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, scene_id, price_zone_id, row_no, col_no, number, price_cents
           FROM seats WHERE scene_id = ? ORDER BY row_no, col_no`, sceneID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Seat{}
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.SceneID, &s.PriceZoneID, &s.Row, &s.Column, &s.Number, &s.PriceCents); err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// CreateBulkTx inserts seats in one statement.  Only the seed
// tooling provisions seats; the service never edits layouts.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (scene_id, price_zone_id, row_no, col_no, number, price_cents) VALUES `
    args := make([]interface{}, 0, len(seats)*6)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?)"
        args = append(args, s.SceneID, s.PriceZoneID, s.Row, s.Column, s.Number, s.PriceCents)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}
