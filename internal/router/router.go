package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/misterticket/seat-reservation/internal/config"
    "github.com/misterticket/seat-reservation/internal/handler"
    "github.com/misterticket/seat-reservation/internal/middleware"
)

// Handlers collects every handler the router mounts.  main wires the
// dependency graph and hands the finished handlers over; the router only
// decides paths and middleware.
type Handlers struct {
    Auth         *handler.AuthHandler
    Events       *handler.EventHandler
    Reservations *handler.ReservationHandler
    SeatLock     *handler.SeatLockHandler
    Stream       *handler.StreamHandler
}

// Register mounts all routes on the provided Echo instance.
//
// Route map:
//
//	/healthz                          – liveness, no auth
//	/v1/auth/*                        – register/login/refresh, no auth
//	/v1/events*                       – public catalogue reads (cached), ADMIN writes
//	/v1/stream                        – public SSE seat status feed
//	/v1/lock/..., /v1/reservations/*  – authenticated lifecycle operations
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
    e.GET("/healthz", handler.Health)

    // Rate limiting covers everything under /v1.  The limiter fails open
    // when Redis is down, so it never blocks the reservation flow.
    rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

    // Unauthenticated session endpoints.
    authG := e.Group("/v1/auth", rl)
    authG.POST("/register", h.Auth.Register)
    authG.POST("/login", h.Auth.Login)
    authG.POST("/refresh", h.Auth.Refresh)

    // Public catalogue.  Only these reads go through the response cache;
    // the seat map below is always served fresh.
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    e.GET("/v1/events", h.Events.List, rl, cache)
    e.GET("/v1/events/:id", h.Events.Get, rl, cache)
    e.GET("/v1/events/:id/seats", h.Events.SeatStates, rl)
    e.GET("/v1/events/:id/layout", h.Events.Layout, rl)

    // Live seat status feed.  No auth so waiting-room style pages can
    // subscribe before login; the payload carries no user data.
    e.GET("/v1/stream", h.Stream.Stream)

    // Everything below requires a valid access token.
    auth := e.Group("/v1", rl, middleware.JWTAuth(cfg.JWTSecret))
    auth.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
    auth.GET("/me", h.Auth.Me)
    auth.POST("/auth/logout", h.Auth.Logout)

    auth.POST("/lock/events/:eventId/seats/:seatId", h.SeatLock.Lock)

    auth.POST("/reservations/confirm", h.Reservations.Confirm)
    auth.POST("/reservations/:id/pay", h.Reservations.Pay)
    auth.POST("/reservations/:id/cancel", h.Reservations.Cancel)
    auth.GET("/reservations/:id", h.Reservations.Get)
    auth.GET("/my-reservations", h.Reservations.ListMine)

    // Catalogue management is ADMIN only.
    admin := e.Group("/v1", rl, middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole("ADMIN"))
    admin.POST("/events", h.Events.Create)
    admin.DELETE("/events/:id", h.Events.Delete)
    admin.PUT("/users/:id/role", h.Auth.SetRole)
}
