package repository

import (
    "context"
    "database/sql"

    "github.com/misterticket/seat-reservation/internal/model"
)

// SceneRepo provides access to scenes and their price zones.  The
// layout-authoring surface lives outside this service; only reads
// and the seed tooling's inserts are exposed.
type SceneRepo struct {
    db *sql.DB
}

// NewSceneRepo constructs a SceneRepo given a DB handle.
func NewSceneRepo(db *sql.DB) *SceneRepo { return &SceneRepo{db: db} }

// GetByID fetches one scene.  Returns sql.ErrNoRows unchanged when
// absent; callers decide whether that is a 404.
func (r *SceneRepo) GetByID(ctx context.Context, id uint64) (model.Scene, error) {
    var s model.Scene
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, max_rows, max_columns FROM scenes WHERE id = ? LIMIT 1`, id).
        Scan(&s.ID, &s.Name, &s.MaxRows, &s.MaxColumns)
    return s, err
}

// ExistsTx reports whether the scene id is present.
func (r *SceneRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes WHERE id = ?`, id).Scan(&n)
    return n > 0, err
}

// CreateTx inserts a scene and writes the generated id back.
func (r *SceneRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Scene) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO scenes (name, max_rows, max_columns) VALUES (?,?,?)`,
        s.Name, s.MaxRows, s.MaxColumns)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// CreateZoneTx inserts a price zone and writes the generated id
// back.
func (r *SceneRepo) CreateZoneTx(ctx context.Context, tx *sql.Tx, z *model.PriceZone) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO price_zones (scene_id, name, price_cents, color_hex) VALUES (?,?,?,?)`,
        z.SceneID, z.Name, z.PriceCents, z.ColorHex)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    z.ID = uint64(id)
    return nil
}
