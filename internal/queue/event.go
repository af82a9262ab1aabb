// Package queue defines message payloads exchanged over the message
// broker, plus the publisher and background consumer for the
// payment.confirmed queue.
package queue

// PaymentConfirmedEvent is published after a reservation payment
// commits.  It carries enough information for downstream consumers
// to log or trigger follow-up work without querying the primary
// database.  Publication is post-commit and fire-and-forget: a
// failed publish never affects the payment.
type PaymentConfirmedEvent struct {
    ReservationID uint64   `json:"reservation_id"`
    UserID        uint64   `json:"user_id"`
    EventID       uint64   `json:"event_id"`
    Reference     string   `json:"reference"`
    AmountCents   uint32   `json:"amount_cents"`
    SeatIDs       []uint64 `json:"seat_ids"`
    PaidAt        string   `json:"paid_at"`
}
