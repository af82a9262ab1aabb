package model

import "time"

// PaymentStatus is the outcome of a payment attempt.  The current
// flow simulates the gateway locally, so only Success is ever
// written; the other values keep the column meaningful once a real
// gateway is wired in.
type PaymentStatus uint8

const (
    PaymentPending PaymentStatus = 0
    PaymentSuccess PaymentStatus = 1
    PaymentFailed  PaymentStatus = 2
)

// Payment is an append-only receipt created as a side effect of a
// successful pay transition.  Rows are never updated or deleted.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – paid reservation.
//  Reference     – external reference token ("PAY-" + 8 chars).
//  AmountCents   – charged amount.
//  Status        – outcome; Success in the simulated flow.
//  CreatedAt     – receipt timestamp (UTC).
type Payment struct {
    ID            uint64        // payments.id
    ReservationID uint64        // payments.reservation_id
    Reference     string        // payments.reference
    AmountCents   uint32        // payments.amount_cents
    Status        PaymentStatus // payments.status
    CreatedAt     time.Time     // payments.created_at
}
