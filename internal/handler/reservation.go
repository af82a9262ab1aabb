package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/misterticket/seat-reservation/internal/model"
    "github.com/misterticket/seat-reservation/internal/repository"
    "github.com/misterticket/seat-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All the
// locking and state machine work lives in service.ReservationService; this
// layer only parses requests and maps domain errors to status codes.
type ReservationHandler struct {
    Svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
    if svc == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Svc: svc}
}

// ----- DTOs -----

type confirmReq struct {
    EventID uint64   `json:"event_id"`
    SeatIDs []uint64 `json:"seat_ids"`
}

type reservationSeatResp struct {
    SeatID     uint64 `json:"seat_id"`
    PriceCents uint32 `json:"price_cents"`
}

type reservationResp struct {
    ID         uint64                `json:"id"`
    EventID    uint64                `json:"event_id"`
    Status     uint8                 `json:"status"`
    StatusName string                `json:"status_name"`
    TotalCents uint32                `json:"total_cents"`
    CreatedAt  time.Time             `json:"created_at"`
    Seats      []reservationSeatResp `json:"seats"`
}

func toReservationResp(res model.Reservation) reservationResp {
    seats := make([]reservationSeatResp, 0, len(res.Seats))
    for _, s := range res.Seats {
        seats = append(seats, reservationSeatResp{SeatID: s.SeatID, PriceCents: s.PriceCents})
    }
    return reservationResp{
        ID:         res.ID,
        EventID:    res.EventID,
        Status:     uint8(res.Status),
        StatusName: res.Status.String(),
        TotalCents: res.TotalCents,
        CreatedAt:  res.CreatedAt,
        Seats:      seats,
    }
}

// Confirm handles POST /v1/reservations/confirm.  All requested seats are
// locked in one shot; a partial grant never survives, the whole request
// fails with 409 and the blocking seat ids instead.
func (h *ReservationHandler) Confirm(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req confirmReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.EventID == 0 || len(req.SeatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and seat_ids are required"})
    }

    res, err := h.Svc.Create(c.Request().Context(), userID, req.EventID, req.SeatIDs)
    if err != nil {
        var conflict *service.ConflictError
        switch {
        case errors.As(err, &conflict):
            return c.JSON(http.StatusConflict, echo.Map{
                "error":       "some seats are unavailable",
                "unavailable": conflict.SeatIDs,
            })
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrSeatNotFound):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seat for this event"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
    }
    return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Pay handles POST /v1/reservations/:id/pay.  Payment succeeds exactly
// once per reservation; repeating the call reports the state violation.
func (h *ReservationHandler) Pay(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    payment, err := h.Svc.Pay(c.Request().Context(), id, userID)
    if err != nil {
        if mapped := reservationError(c, err); mapped != nil {
            return mapped
        }
        // The hold lapsed and another user reclaimed a seat before
        // this payment arrived.
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "seats are no longer held"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "reservation_id": payment.ReservationID,
        "reference":      payment.Reference,
        "amount_cents":   payment.AmountCents,
        "status":         uint8(payment.Status),
        "paid_at":        payment.CreatedAt,
    })
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    if err := h.Svc.Cancel(c.Request().Context(), id, userID); err != nil {
        if mapped := reservationError(c, err); mapped != nil {
            return mapped
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"canceled": id})
}

// Get handles GET /v1/reservations/:id (owner only).
func (h *ReservationHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    res, err := h.Svc.Get(c.Request().Context(), id, userID)
    if err != nil {
        // Foreign reservations read as absent, not forbidden.
        if errors.Is(err, repository.ErrReservationNotFound) || errors.Is(err, repository.ErrForbidden) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, toReservationResp(res))
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Svc.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]reservationResp, 0, len(list))
    for _, res := range list {
        out = append(out, toReservationResp(res))
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// reservationError maps the shared domain errors of Pay and Cancel; it
// returns nil for errors the caller should handle itself.
func reservationError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrReservationNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    case errors.Is(err, repository.ErrEventNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrInvalidState):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation is not on-going"})
    }
    return nil
}
