package main // Entry point package

import (
    "context"
    "net/http"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/misterticket/seat-reservation/internal/config"
    "github.com/misterticket/seat-reservation/internal/database"
    "github.com/misterticket/seat-reservation/internal/handler"
    "github.com/misterticket/seat-reservation/internal/hub"
    "github.com/misterticket/seat-reservation/internal/lock"
    "github.com/misterticket/seat-reservation/internal/queue"
    "github.com/misterticket/seat-reservation/internal/repository"
    "github.com/misterticket/seat-reservation/internal/router"
    "github.com/misterticket/seat-reservation/internal/service"
)

func newLogger(cfg config.Config) *zap.SugaredLogger {
    var zc zap.Config
    if strings.EqualFold(cfg.Env, "dev") {
        zc = zap.NewDevelopmentConfig()
    } else {
        zc = zap.NewProductionConfig()
    }
    if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
        zc.Level = lvl
    }
    zl, err := zc.Build()
    if err != nil {
        panic(err)
    }
    return zl.Sugar()
}

func main() {
    _ = godotenv.Load() // .env is optional; real deployments use the environment

    cfg := config.Load()
    log := newLogger(cfg)
    defer func() { _ = log.Sync() }()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalw("database connect failed", "err", err)
    }
    defer db.Close()

    // Redis is optional: caching, rate limiting and the pub/sub backplane
    // all degrade to in-process behaviour when it is absent.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warnw("redis unavailable, running without cache/ratelimit/backplane")
    }

    statusHub := hub.New(rdb, cfg.HubChannel, log)

    // Repositories.
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    scenes := repository.NewSceneRepo(db)
    seats := repository.NewSeatRepo(db)
    events := repository.NewEventRepo(db)
    eventSeats := repository.NewEventSeatRepo(db)
    reservations := repository.NewReservationRepo(db)
    payments := repository.NewPaymentRepo(db)

    // Domain services.
    locks := lock.NewManager(eventSeats, statusHub)
    receipts := queue.NewPublisher(log)
    resSvc := service.NewReservationService(events, seats, eventSeats, reservations, payments, locks, receipts, log)
    sweeper := service.NewSweeper(eventSeats, reservations, locks, cfg.SweepDelay, cfg.SweepInterval, log)

    // HTTP server.
    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    router.Register(e, cfg, rdb, router.Handlers{
        Auth:         handler.NewAuthHandler(cfg, users, tokens),
        Events:       handler.NewEventHandler(events, scenes, seats, eventSeats, reservations),
        Reservations: handler.NewReservationHandler(resSvc),
        SeatLock:     handler.NewSeatLockHandler(resSvc),
        Stream:       handler.NewStreamHandler(statusHub),
    })

    g, ctx := errgroup.WithContext(ctx)

    g.Go(func() error {
        log.Infow("listening", "addr", ":"+cfg.Port, "env", cfg.Env)
        if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
            return err
        }
        return nil
    })
    g.Go(func() error {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        return e.Shutdown(shutdownCtx)
    })
    g.Go(func() error { return sweeper.Run(ctx) })
    g.Go(func() error { return statusHub.Run(ctx) })
    g.Go(func() error { return queue.StartConsumer(ctx, log) })

    if err := g.Wait(); err != nil && err != context.Canceled {
        log.Fatalw("shutdown with error", "err", err)
    }
    log.Infow("shutdown complete")
}
