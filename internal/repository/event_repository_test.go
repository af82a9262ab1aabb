package repository

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/testdb"
)

// seedCatalog creates a scene with a zone and n seats, returning the
// scene id and seat ids.
func seedCatalog(t *testing.T, db *sql.DB, n int) (uint64, []uint64) {
    t.Helper()
    ctx := context.Background()
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin: %v", err)
    }
    scenes := NewSceneRepo(db)
    seats := NewSeatRepo(db)

    scene := model.Scene{Name: "Stage", MaxRows: 1, MaxColumns: uint32(n)}
    if err := scenes.CreateTx(ctx, tx, &scene); err != nil {
        t.Fatalf("create scene: %v", err)
    }
    zone := model.PriceZone{SceneID: scene.ID, Name: "Std", PriceCents: 4500}
    if err := scenes.CreateZoneTx(ctx, tx, &zone); err != nil {
        t.Fatalf("create zone: %v", err)
    }
    grid := make([]model.Seat, 0, n)
    for col := 0; col < n; col++ {
        grid = append(grid, model.Seat{
            SceneID:     scene.ID,
            PriceZoneID: zone.ID,
            Row:         0,
            Column:      uint32(col),
            Number:      "A",
            PriceCents:  4500,
        })
    }
    if err := seats.CreateBulkTx(ctx, tx, grid); err != nil {
        t.Fatalf("create seats: %v", err)
    }
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit: %v", err)
    }

    ids, err := func() ([]uint64, error) {
        tx, err := db.BeginTx(ctx, nil)
        if err != nil {
            return nil, err
        }
        defer func() { _ = tx.Rollback() }()
        return seats.IDsBySceneTx(ctx, tx, scene.ID)
    }()
    if err != nil {
        t.Fatalf("load seat ids: %v", err)
    }
    if len(ids) != n {
        t.Fatalf("seeded %d seats, got %d", n, len(ids))
    }
    return scene.ID, ids
}

func TestEventCreateListDelete(t *testing.T) {
    db := testdb.Open(t)
    ctx := context.Background()
    sceneID, seatIDs := seedCatalog(t, db, 2)
    events := NewEventRepo(db)
    eventSeats := NewEventSeatRepo(db)

    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin: %v", err)
    }
    ev := model.Event{SceneID: sceneID, Name: "Opening", Description: "first", StartsAt: time.Now().UTC().Add(48 * time.Hour)}
    if err := events.CreateTx(ctx, tx, &ev); err != nil {
        t.Fatalf("create event: %v", err)
    }
    if err := eventSeats.CreateBulkTx(ctx, tx, ev.ID, seatIDs); err != nil {
        t.Fatalf("create event seats: %v", err)
    }
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit: %v", err)
    }

    got, err := events.GetByID(ctx, ev.ID)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if got.Name != "Opening" || got.SceneName != "Stage" {
        t.Fatalf("got %+v", got)
    }

    list, err := events.List(ctx)
    if err != nil || len(list) != 1 {
        t.Fatalf("list: %v (%d entries)", err, len(list))
    }

    ok, err := events.Exists(ctx, ev.ID)
    if err != nil || !ok {
        t.Fatalf("exists: ok=%v err=%v", ok, err)
    }

    tx, err = db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin delete: %v", err)
    }
    if err := eventSeats.DeleteByEventTx(ctx, tx, ev.ID); err != nil {
        t.Fatalf("delete seats: %v", err)
    }
    if err := events.DeleteTx(ctx, tx, ev.ID); err != nil {
        t.Fatalf("delete event: %v", err)
    }
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit delete: %v", err)
    }
    if _, err := events.GetByID(ctx, ev.ID); err != ErrEventNotFound {
        t.Fatalf("expected ErrEventNotFound, got %v", err)
    }
}

func TestListNonFreeMasksLapsedHolds(t *testing.T) {
    db := testdb.Open(t)
    ctx := context.Background()
    sceneID, seatIDs := seedCatalog(t, db, 3)
    events := NewEventRepo(db)
    eventSeats := NewEventSeatRepo(db)

    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin: %v", err)
    }
    ev := model.Event{SceneID: sceneID, Name: "Show", StartsAt: time.Now().UTC().Add(time.Hour)}
    if err := events.CreateTx(ctx, tx, &ev); err != nil {
        t.Fatalf("create event: %v", err)
    }
    if err := eventSeats.CreateBulkTx(ctx, tx, ev.ID, seatIDs); err != nil {
        t.Fatalf("create event seats: %v", err)
    }
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit: %v", err)
    }

    now := time.Now().UTC()
    // Seat 0: paid.  Seat 1: live hold.  Seat 2: lapsed hold.
    if _, err := db.Exec(`UPDATE event_seats SET status = 2 WHERE event_id = ? AND seat_id = ?`, ev.ID, seatIDs[0]); err != nil {
        t.Fatalf("mark paid: %v", err)
    }
    if _, err := db.Exec(`UPDATE event_seats SET status = 1, locked_until = ?, reserved_by_user_id = 1 WHERE event_id = ? AND seat_id = ?`,
        now.Add(10*time.Minute), ev.ID, seatIDs[1]); err != nil {
        t.Fatalf("hold live: %v", err)
    }
    if _, err := db.Exec(`UPDATE event_seats SET status = 1, locked_until = ?, reserved_by_user_id = 2 WHERE event_id = ? AND seat_id = ?`,
        now.Add(-10*time.Minute), ev.ID, seatIDs[2]); err != nil {
        t.Fatalf("hold lapsed: %v", err)
    }

    states, err := eventSeats.ListNonFree(ctx, ev.ID, now)
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(states) != 2 {
        t.Fatalf("got %d non-free seats, want 2 (lapsed hold must read Free): %+v", len(states), states)
    }
    byID := map[uint64]model.SeatStatus{}
    for _, s := range states {
        byID[s.SeatID] = s.Status
    }
    if byID[seatIDs[0]] != model.SeatPaid {
        t.Fatalf("seat 0 status %v", byID[seatIDs[0]])
    }
    if byID[seatIDs[1]] != model.SeatReservedTemp {
        t.Fatalf("seat 1 status %v", byID[seatIDs[1]])
    }
    if _, ok := byID[seatIDs[2]]; ok {
        t.Fatal("lapsed hold reported as non-free")
    }
}

func TestReservationListByUserNewestFirst(t *testing.T) {
    db := testdb.Open(t)
    ctx := context.Background()
    sceneID, seatIDs := seedCatalog(t, db, 2)
    events := NewEventRepo(db)
    eventSeats := NewEventSeatRepo(db)
    reservations := NewReservationRepo(db)

    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin: %v", err)
    }
    ev := model.Event{SceneID: sceneID, Name: "Show", StartsAt: time.Now().UTC().Add(time.Hour)}
    if err := events.CreateTx(ctx, tx, &ev); err != nil {
        t.Fatalf("create event: %v", err)
    }
    if err := eventSeats.CreateBulkTx(ctx, tx, ev.ID, seatIDs); err != nil {
        t.Fatalf("create event seats: %v", err)
    }

    first := model.Reservation{
        UserID: 7, EventID: ev.ID, Status: model.ReservationOnGoing, TotalCents: 4500,
        CreatedAt: time.Now().UTC().Add(-time.Hour),
        Seats:     []model.ReservationSeat{{SeatID: seatIDs[0], PriceCents: 4500}},
    }
    second := model.Reservation{
        UserID: 7, EventID: ev.ID, Status: model.ReservationOnGoing, TotalCents: 4500,
        CreatedAt: time.Now().UTC(),
        Seats:     []model.ReservationSeat{{SeatID: seatIDs[1], PriceCents: 4500}},
    }
    for _, r := range []*model.Reservation{&first, &second} {
        if err := reservations.CreateTx(ctx, tx, r); err != nil {
            t.Fatalf("create reservation: %v", err)
        }
    }
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit: %v", err)
    }

    list, err := reservations.ListByUser(ctx, 7)
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(list) != 2 {
        t.Fatalf("got %d reservations", len(list))
    }
    if list[0].ID != second.ID || list[1].ID != first.ID {
        t.Fatalf("order [%d %d], want [%d %d]", list[0].ID, list[1].ID, second.ID, first.ID)
    }
    if len(list[0].Seats) != 1 || list[0].Seats[0].SeatID != seatIDs[1] {
        t.Fatalf("seats not joined: %+v", list[0].Seats)
    }
}
