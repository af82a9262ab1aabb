package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/repository"
)

// EventHandler serves the event catalogue and the per-event seat map.
// Catalogue reads are public and sit behind the response cache; the seat
// map is read fresh on every request because its whole value is
// up-to-the-second accuracy.
type EventHandler struct {
    Events       *repository.EventRepo
    Scenes       *repository.SceneRepo
    Seats        *repository.SeatRepo
    EventSeats   *repository.EventSeatRepo
    Reservations *repository.ReservationRepo
}

func NewEventHandler(events *repository.EventRepo, scenes *repository.SceneRepo, seats *repository.SeatRepo, eventSeats *repository.EventSeatRepo, reservations *repository.ReservationRepo) *EventHandler {
    if events == nil || scenes == nil || seats == nil || eventSeats == nil || reservations == nil {
        panic("nil repository passed to NewEventHandler")
    }
    return &EventHandler{Events: events, Scenes: scenes, Seats: seats, EventSeats: eventSeats, Reservations: reservations}
}

type eventResp struct {
    ID          uint64    `json:"id"`
    SceneID     uint64    `json:"scene_id"`
    SceneName   string    `json:"scene_name"`
    Name        string    `json:"name"`
    Description string    `json:"description"`
    StartsAt    time.Time `json:"starts_at"`
}

func toEventResp(ev repository.EventWithScene) eventResp {
    return eventResp{
        ID:          ev.ID,
        SceneID:     ev.SceneID,
        SceneName:   ev.SceneName,
        Name:        ev.Name,
        Description: ev.Description,
        StartsAt:    ev.StartsAt,
    }
}

// List handles GET /v1/events.
func (h *EventHandler) List(c echo.Context) error {
    events, err := h.Events.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]eventResp, 0, len(events))
    for _, ev := range events {
        out = append(out, toEventResp(ev))
    }
    return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), id)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, toEventResp(ev))
}

// SeatStates handles GET /v1/events/:id/seats.  Only seats that are
// not Free are listed, as (seat_id, status) pairs; anything absent
// from the result is available.  A ReservedTemp seat whose lock has
// already lapsed is omitted even before the sweeper visits it.
func (h *EventHandler) SeatStates(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()

    ok, err := h.Events.Exists(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }

    states, err := h.EventSeats.ListNonFree(ctx, id, time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": id, "seats": states})
}

type layoutEntry struct {
    SeatID     uint64 `json:"seat_id"`
    Row        uint32 `json:"row"`
    Column     uint32 `json:"column"`
    Number     string `json:"number"`
    PriceCents uint32 `json:"price_cents"`
    Status     uint8  `json:"status"`
    StatusName string `json:"status_name"`
}

// Layout handles GET /v1/events/:id/layout: the full seat geometry of
// the event's scene with each seat's current status, for clients that
// render the room instead of diffing statuses against a cached map.
func (h *EventHandler) Layout(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()

    ev, err := h.Events.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    seats, err := h.Seats.ListByScene(ctx, ev.SceneID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    states, err := h.EventSeats.ListNonFree(ctx, id, time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    byID := make(map[uint64]model.SeatStatus, len(states))
    for _, s := range states {
        byID[s.SeatID] = s.Status
    }

    out := make([]layoutEntry, 0, len(seats))
    for _, seat := range seats {
        st := byID[seat.ID] // zero value is SeatFree
        out = append(out, layoutEntry{
            SeatID:     seat.ID,
            Row:        seat.Row,
            Column:     seat.Column,
            Number:     seat.Number,
            PriceCents: seat.PriceCents,
            Status:     uint8(st),
            StatusName: st.String(),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": id, "seats": out})
}

type createEventReq struct {
    SceneID     uint64    `json:"scene_id"`
    Name        string    `json:"name"`
    Description string    `json:"description"`
    StartsAt    time.Time `json:"starts_at"`
}

// Create handles POST /v1/events (ADMIN).  The event row and one Free
// EventSeat per seat of the scene are written in a single transaction so
// the seat map is complete from the moment the event becomes visible.
func (h *EventHandler) Create(c echo.Context) error {
    var req createEventReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.SceneID == 0 || req.Name == "" || req.StartsAt.IsZero() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "scene_id, name and starts_at are required"})
    }

    ctx := c.Request().Context()
    tx, err := h.Events.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    ok, err := h.Scenes.ExistsTx(ctx, tx, req.SceneID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "scene not found"})
    }

    ev := model.Event{
        SceneID:     req.SceneID,
        Name:        req.Name,
        Description: req.Description,
        StartsAt:    req.StartsAt.UTC(),
    }
    if err := h.Events.CreateTx(ctx, tx, &ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
    }

    seatIDs, err := h.Seats.IDsBySceneTx(ctx, tx, req.SceneID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if len(seatIDs) > 0 {
        if err := h.EventSeats.CreateBulkTx(ctx, tx, ev.ID, seatIDs); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seat map failed"})
        }
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true

    return c.JSON(http.StatusCreated, echo.Map{
        "id":         ev.ID,
        "seat_count": len(seatIDs),
    })
}

// Delete handles DELETE /v1/events/:id (ADMIN).  Reservations, seat rows
// and the event itself are removed in one transaction.
func (h *EventHandler) Delete(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }

    ctx := c.Request().Context()
    tx, err := h.Events.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Child rows first; FK order matters on MySQL.
    if err := h.Reservations.DeleteByEventTx(ctx, tx, id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete reservations failed"})
    }
    if err := h.EventSeats.DeleteByEventTx(ctx, tx, id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete seat map failed"})
    }
    if err := h.Events.DeleteTx(ctx, tx, id); err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
    }
    committed = true
    return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}
