package model

import "time"

// ReservationStatus tracks the lifecycle of a reservation.  The
// transitions are monotonic: OnGoing may move to Paid or Canceled,
// both of which are terminal.
type ReservationStatus uint8

const (
    ReservationOnGoing  ReservationStatus = 1 // seats held, awaiting payment
    ReservationPaid     ReservationStatus = 2 // paid, terminal
    ReservationCanceled ReservationStatus = 3 // canceled or expired, terminal
)

// String returns the upper-case name of the status for logs.
func (s ReservationStatus) String() string {
    switch s {
    case ReservationOnGoing:
        return "ONGOING"
    case ReservationPaid:
        return "PAID"
    case ReservationCanceled:
        return "CANCELED"
    }
    return "UNKNOWN"
}

// Reservation is one user's multi-seat transaction for an event.
// The seat list is a snapshot of seat ids and prices taken when the
// reservation was created; EventSeat remains authoritative for
// availability and the two are moved in lockstep by every mutating
// operation.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owning user.
//  EventID    – owning event.
//  Status     – lifecycle state.
//  TotalCents – sum of the seat price snapshots.
//  CreatedAt  – creation timestamp (UTC).
//  Seats      – per-seat price snapshots, ordered as requested.
type Reservation struct {
    ID         uint64            // reservations.id
    UserID     uint64            // reservations.user_id
    EventID    uint64            // reservations.event_id
    Status     ReservationStatus // reservations.status
    TotalCents uint32            // reservations.total_cents
    CreatedAt  time.Time         // reservations.created_at
    Seats      []ReservationSeat // joined from reservation_seats
}

// ReservationSeat is the price snapshot of one seat inside a
// reservation.  It exists so the reservation keeps displaying the
// price that was charged even if the seat's zone is repriced later.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation.
//  SeatID        – underlying seat.
//  PriceCents    – price at reservation time.
type ReservationSeat struct {
    ID            uint64 // reservation_seats.id
    ReservationID uint64 // reservation_seats.reservation_id
    SeatID        uint64 // reservation_seats.seat_id
    PriceCents    uint32 // reservation_seats.price_cents
}
