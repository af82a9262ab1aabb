package repository

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/misterticket/seat-reservation/internal/testdb"
    "github.com/misterticket/seat-reservation/internal/utils"
)

func TestUserCreateAndFetch(t *testing.T) {
    db := testdb.Open(t)
    repo := NewUserRepo(db)
    ctx := context.Background()

    id, err := repo.Create(ctx, "  Alice@Example.COM ", "s3cret", "CUSTOMER", 4)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if id == 0 {
        t.Fatal("id not assigned")
    }

    // Lookup normalizes the email the same way creation does.
    u, err := repo.GetByEmail(ctx, "alice@example.com")
    if err != nil {
        t.Fatalf("get by email: %v", err)
    }
    if u.ID != id || u.Email != "alice@example.com" || u.Role != "CUSTOMER" {
        t.Fatalf("got %+v", u)
    }
    if !utils.VerifyPassword(u.PasswordHash, "s3cret") {
        t.Fatal("stored hash does not verify")
    }
    if utils.VerifyPassword(u.PasswordHash, "wrong") {
        t.Fatal("wrong password verified")
    }

    if _, err := repo.GetByID(ctx, id); err != nil {
        t.Fatalf("get by id: %v", err)
    }
    if _, err := repo.GetByEmail(ctx, "nobody@example.com"); err != sql.ErrNoRows {
        t.Fatalf("expected ErrNoRows, got %v", err)
    }
}

func TestUserDuplicateEmail(t *testing.T) {
    db := testdb.Open(t)
    repo := NewUserRepo(db)
    ctx := context.Background()

    if _, err := repo.Create(ctx, "bob@example.com", "pw", "CUSTOMER", 4); err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := repo.Create(ctx, "BOB@example.com", "pw2", "ADMIN", 4); err != ErrEmailExists {
        t.Fatalf("expected ErrEmailExists, got %v", err)
    }
}

func TestUserUpdateRole(t *testing.T) {
    db := testdb.Open(t)
    repo := NewUserRepo(db)
    ctx := context.Background()

    id, err := repo.Create(ctx, "erin@example.com", "pw", "CUSTOMER", 4)
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if err := repo.UpdateRole(ctx, id, "ADMIN"); err != nil {
        t.Fatalf("update role: %v", err)
    }
    u, err := repo.GetByID(ctx, id)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if u.Role != "ADMIN" {
        t.Fatalf("role %q, want ADMIN", u.Role)
    }
}

func TestRefreshTokenLifecycle(t *testing.T) {
    db := testdb.Open(t)
    users := NewUserRepo(db)
    tokens := NewTokenRepo(db)
    ctx := context.Background()

    uid, err := users.Create(ctx, "carol@example.com", "pw", "CUSTOMER", 4)
    if err != nil {
        t.Fatalf("create user: %v", err)
    }

    hash := utils.HashRefreshRaw("raw-token")
    if err := tokens.StoreRefresh(ctx, uid, hash, time.Now().UTC().Add(time.Hour)); err != nil {
        t.Fatalf("store: %v", err)
    }
    got, err := tokens.ValidateRefresh(ctx, hash)
    if err != nil || got != uid {
        t.Fatalf("validate: uid=%d err=%v", got, err)
    }

    if err := tokens.RevokeByHash(ctx, hash); err != nil {
        t.Fatalf("revoke: %v", err)
    }
    if _, err := tokens.ValidateRefresh(ctx, hash); err != sql.ErrNoRows {
        t.Fatalf("expected ErrNoRows after revoke, got %v", err)
    }
}

func TestRefreshTokenExpiryAndRevokeAll(t *testing.T) {
    db := testdb.Open(t)
    users := NewUserRepo(db)
    tokens := NewTokenRepo(db)
    ctx := context.Background()

    uid, err := users.Create(ctx, "dave@example.com", "pw", "CUSTOMER", 4)
    if err != nil {
        t.Fatalf("create user: %v", err)
    }

    expired := utils.HashRefreshRaw("expired")
    if err := tokens.StoreRefresh(ctx, uid, expired, time.Now().UTC().Add(-time.Minute)); err != nil {
        t.Fatalf("store expired: %v", err)
    }
    if _, err := tokens.ValidateRefresh(ctx, expired); err != sql.ErrNoRows {
        t.Fatalf("expected ErrNoRows for expired token, got %v", err)
    }

    a := utils.HashRefreshRaw("a")
    b := utils.HashRefreshRaw("b")
    for _, h := range []string{a, b} {
        if err := tokens.StoreRefresh(ctx, uid, h, time.Now().UTC().Add(time.Hour)); err != nil {
            t.Fatalf("store: %v", err)
        }
    }
    if err := tokens.RevokeAllForUser(ctx, uid); err != nil {
        t.Fatalf("revoke all: %v", err)
    }
    for _, h := range []string{a, b} {
        if _, err := tokens.ValidateRefresh(ctx, h); err != sql.ErrNoRows {
            t.Fatalf("expected ErrNoRows after revoke all, got %v", err)
        }
    }
}
