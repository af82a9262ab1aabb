package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/misterticket/seat-reservation/internal/repository"
    "github.com/misterticket/seat-reservation/internal/service"
)

// SeatLockHandler serves the ad-hoc single seat lock.  A successful lock
// holds the seat for ten minutes without creating a reservation; the
// sweeper reclaims it if the user never follows up with a confirm.
type SeatLockHandler struct {
    Svc *service.ReservationService
}

func NewSeatLockHandler(svc *service.ReservationService) *SeatLockHandler {
    if svc == nil {
        panic("nil service passed to NewSeatLockHandler")
    }
    return &SeatLockHandler{Svc: svc}
}

// Lock handles POST /v1/lock/events/:eventId/seats/:seatId.
func (h *SeatLockHandler) Lock(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    seatID, err := strconv.ParseUint(c.Param("seatId"), 10, 64)
    if err != nil || seatID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
    }

    lockedUntil, err := h.Svc.LockSeat(c.Request().Context(), userID, eventID, seatID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrSeatNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat is not free"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"lock_until": lockedUntil})
}
