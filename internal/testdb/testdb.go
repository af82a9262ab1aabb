// Package testdb opens throwaway in-memory SQLite databases for tests.
// The schema mirrors migrations/schema.sql in SQLite dialect; every query
// in the repository layer sticks to the portable subset of SQL, so the
// same code runs against MySQL in production and SQLite in tests.
package testdb

import (
    "database/sql"
    "testing"

    _ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'CUSTOMER',
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE refresh_tokens (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL REFERENCES users (id),
    token_hash TEXT NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE scenes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    max_rows    INTEGER NOT NULL,
    max_columns INTEGER NOT NULL
);

CREATE TABLE price_zones (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scene_id    INTEGER NOT NULL REFERENCES scenes (id),
    name        TEXT NOT NULL,
    price_cents INTEGER NOT NULL,
    color_hex   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE seats (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    scene_id      INTEGER NOT NULL REFERENCES scenes (id),
    price_zone_id INTEGER NOT NULL REFERENCES price_zones (id),
    row_no        INTEGER NOT NULL,
    col_no        INTEGER NOT NULL,
    number        TEXT NOT NULL,
    price_cents   INTEGER NOT NULL,
    UNIQUE (scene_id, row_no, col_no)
);

CREATE TABLE events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scene_id    INTEGER NOT NULL REFERENCES scenes (id),
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    starts_at   DATETIME NOT NULL
);

CREATE TABLE event_seats (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id            INTEGER NOT NULL REFERENCES events (id),
    seat_id             INTEGER NOT NULL REFERENCES seats (id),
    status              INTEGER NOT NULL DEFAULT 0,
    locked_until        DATETIME,
    reserved_by_user_id INTEGER,
    UNIQUE (event_id, seat_id)
);

CREATE TABLE reservations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL REFERENCES users (id),
    event_id    INTEGER NOT NULL REFERENCES events (id),
    status      INTEGER NOT NULL DEFAULT 1,
    total_cents INTEGER NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE TABLE reservation_seats (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    reservation_id INTEGER NOT NULL REFERENCES reservations (id),
    seat_id        INTEGER NOT NULL REFERENCES seats (id),
    price_cents    INTEGER NOT NULL,
    UNIQUE (reservation_id, seat_id)
);

CREATE TABLE payments (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    reservation_id INTEGER NOT NULL REFERENCES reservations (id),
    reference      TEXT NOT NULL UNIQUE,
    amount_cents   INTEGER NOT NULL,
    status         INTEGER NOT NULL DEFAULT 0,
    created_at     DATETIME NOT NULL
);
`

// Open returns an in-memory database with the full schema applied.  The
// connection pool is capped at one connection: SQLite's :memory: mode
// gives every connection its own empty database, and a single connection
// also serializes concurrent test goroutines the way MySQL's row locks
// would.
func Open(t *testing.T) *sql.DB {
    t.Helper()
    db, err := sql.Open("sqlite", ":memory:")
    if err != nil {
        t.Fatalf("open sqlite: %v", err)
    }
    db.SetMaxOpenConns(1)
    if _, err := db.Exec(schema); err != nil {
        db.Close()
        t.Fatalf("apply schema: %v", err)
    }
    t.Cleanup(func() { _ = db.Close() })
    return db
}
