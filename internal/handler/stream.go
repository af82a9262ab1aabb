package handler

import (
    "encoding/json"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/misterticket/seat-reservation/internal/hub"
)

// StreamHandler exposes the seat status feed as Server-Sent Events.
// Delivery is fire-and-forget: a slow client misses updates instead of
// stalling the broadcaster, and reconciles by re-fetching the seat map
// after (re)connecting.
type StreamHandler struct {
    Hub *hub.Hub
}

func NewStreamHandler(h *hub.Hub) *StreamHandler {
    if h == nil {
        panic("nil hub passed to NewStreamHandler")
    }
    return &StreamHandler{Hub: h}
}

// Stream handles GET /v1/stream.  Each committed seat transition arrives
// as one SSE message whose data is the positional array
// [eventId, seatId, status].
func (h *StreamHandler) Stream(c echo.Context) error {
    w := c.Response()
    w.Header().Set(echo.HeaderContentType, "text/event-stream")
    w.Header().Set(echo.HeaderCacheControl, "no-cache")
    w.Header().Set(echo.HeaderConnection, "keep-alive")
    w.WriteHeader(http.StatusOK)
    w.Flush()

    id, updates := h.Hub.Subscribe(64)
    defer h.Hub.Unsubscribe(id)

    ctx := c.Request().Context()
    for {
        select {
        case <-ctx.Done():
            return nil
        case u, ok := <-updates:
            if !ok {
                return nil
            }
            args, err := json.Marshal(u.Arguments())
            if err != nil {
                continue
            }
            if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", hub.EventName, args); err != nil {
                return nil
            }
            w.Flush()
        }
    }
}
