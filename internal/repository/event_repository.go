package repository // repository for event persistence

import (
    "context"
    "database/sql"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
)

// EventWithScene is an event joined with its scene's display name
// for the public catalogue.
type EventWithScene struct {
    model.Event
    SceneName string
}

// EventRepo encapsulates database operations for events.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo constructs an EventRepo given a DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Exists reports whether the event id is present.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, id).Scan(&n)
    return n > 0, err
}

// ExistsTx is Exists inside the caller's transaction.
func (r *EventRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, id).Scan(&n)
    return n > 0, err
}

// GetByID fetches one event joined with its scene name.  Returns
// ErrEventNotFound when no row exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (EventWithScene, error) {
    var (
        ev    EventWithScene
        starts time.Time
    )
    err := r.db.QueryRowContext(ctx,
        `SELECT e.id, e.scene_id, e.name, e.description, e.starts_at, s.name
           FROM events e JOIN scenes s ON s.id = e.scene_id
          WHERE e.id = ? LIMIT 1`, id).
        Scan(&ev.ID, &ev.SceneID, &ev.Name, &ev.Description, &starts, &ev.SceneName)
    if err == sql.ErrNoRows {
        return EventWithScene{}, ErrEventNotFound
    }
    if err != nil {
        return EventWithScene{}, err
    }
    ev.StartsAt = starts.UTC()
    return ev, nil
}

// List returns the full catalogue ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]EventWithScene, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT e.id, e.scene_id, e.name, e.description, e.starts_at, s.name
           FROM events e JOIN scenes s ON s.id = e.scene_id
          ORDER BY e.starts_at, e.id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []EventWithScene{}
    for rows.Next() {
        var ev EventWithScene
        if err := rows.Scan(&ev.ID, &ev.SceneID, &ev.Name, &ev.Description, &ev.StartsAt, &ev.SceneName); err != nil {
            return nil, err
        }
        ev.StartsAt = ev.StartsAt.UTC()
        out = append(out, ev)
    }
    return out, rows.Err()
}

// CreateTx inserts the event row and writes the generated id back
// into ev.ID.  Event seats are created by the caller in the same
// transaction so the seat map commits together with the event.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO events (scene_id, name, description, starts_at) VALUES (?,?,?,?)`,
        ev.SceneID, ev.Name, ev.Description, ev.StartsAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    ev.ID = uint64(id)
    return nil
}

// DeleteTx removes the event row itself.  Dependent event_seats and
// reservations are removed by their repositories beforehand, inside
// the same transaction.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrEventNotFound
    }
    return nil
}
