package main // Seeds a demo scene, users and one event

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/joho/godotenv"

    "github.com/misterticket/seat-reservation/internal/config"
    "github.com/misterticket/seat-reservation/internal/database"
    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/repository"
)

// Layout of the demo scene: 8 rows by 12 columns, the first three rows
// in the premium zone, the rest standard.
const (
    seedRows    = 8
    seedCols    = 12
    premiumRows = 3
)

func main() {
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connect failed: %v", err)
    }
    defer db.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    users := repository.NewUserRepo(db)
    scenes := repository.NewSceneRepo(db)
    seats := repository.NewSeatRepo(db)
    events := repository.NewEventRepo(db)
    eventSeats := repository.NewEventSeatRepo(db)

    // Demo accounts.  Registration would work just as well; seeding them
    // directly keeps local setup to a single command.
    if _, err := users.Create(ctx, "admin@example.com", "admin123", "ADMIN", cfg.BcryptCost); err != nil && err != repository.ErrEmailExists {
        log.Fatalf("seed admin failed: %v", err)
    }
    if _, err := users.Create(ctx, "customer@example.com", "customer123", "CUSTOMER", cfg.BcryptCost); err != nil && err != repository.ErrEmailExists {
        log.Fatalf("seed customer failed: %v", err)
    }

    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        log.Fatalf("begin tx failed: %v", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    scene := model.Scene{Name: "Main Stage", MaxRows: seedRows, MaxColumns: seedCols}
    if err := scenes.CreateTx(ctx, tx, &scene); err != nil {
        log.Fatalf("seed scene failed: %v", err)
    }

    premium := model.PriceZone{SceneID: scene.ID, Name: "Premium", PriceCents: 7500, ColorHex: "#d4af37"}
    standard := model.PriceZone{SceneID: scene.ID, Name: "Standard", PriceCents: 4500, ColorHex: "#4a90d9"}
    if err := scenes.CreateZoneTx(ctx, tx, &premium); err != nil {
        log.Fatalf("seed zone failed: %v", err)
    }
    if err := scenes.CreateZoneTx(ctx, tx, &standard); err != nil {
        log.Fatalf("seed zone failed: %v", err)
    }

    grid := make([]model.Seat, 0, seedRows*seedCols)
    for row := 0; row < seedRows; row++ {
        zone := &standard
        if row < premiumRows {
            zone = &premium
        }
        for col := 0; col < seedCols; col++ {
            grid = append(grid, model.Seat{
                SceneID:     scene.ID,
                PriceZoneID: zone.ID,
                Row:         uint32(row),
                Column:      uint32(col),
                Number:      fmt.Sprintf("%c%d", 'A'+row, col+1),
                PriceCents:  zone.PriceCents,
            })
        }
    }
    if err := seats.CreateBulkTx(ctx, tx, grid); err != nil {
        log.Fatalf("seed seats failed: %v", err)
    }

    ev := model.Event{
        SceneID:     scene.ID,
        Name:        "Opening Night",
        Description: "Demo event created by the seeder.",
        StartsAt:    time.Now().UTC().Add(14 * 24 * time.Hour).Truncate(time.Hour),
    }
    if err := events.CreateTx(ctx, tx, &ev); err != nil {
        log.Fatalf("seed event failed: %v", err)
    }

    seatIDs, err := seats.IDsBySceneTx(ctx, tx, scene.ID)
    if err != nil {
        log.Fatalf("load seat ids failed: %v", err)
    }
    if err := eventSeats.CreateBulkTx(ctx, tx, ev.ID, seatIDs); err != nil {
        log.Fatalf("seed event seats failed: %v", err)
    }

    if err := tx.Commit(); err != nil {
        log.Fatalf("commit failed: %v", err)
    }
    committed = true

    log.Printf("seeded scene=%d event=%d seats=%d", scene.ID, ev.ID, len(seatIDs))
}
