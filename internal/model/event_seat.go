package model

import "time"

// SeatStatus is the availability state of one seat for one event.
// The ordinal values are part of the public API: the seat-map
// endpoint and the ReceiveSeatStatusUpdate push both serialize the
// raw number.
type SeatStatus uint8

const (
    SeatFree         SeatStatus = 0 // available to anyone
    SeatReservedTemp SeatStatus = 1 // held until LockedUntil passes
    SeatPaid         SeatStatus = 2 // sold; only an explicit cancel frees it
)

// String returns the upper-case name of the status for logs.
func (s SeatStatus) String() string {
    switch s {
    case SeatFree:
        return "FREE"
    case SeatReservedTemp:
        return "RESERVED_TEMP"
    case SeatPaid:
        return "PAID"
    }
    return "UNKNOWN"
}

// EventSeat is the hold/availability record for one (event, seat)
// pair and the single source of truth for seat availability.  Rows
// are created in bulk when the event is scheduled and mutated only
// through the lock manager.
//
// Invariants:
//  LockedUntil is non-nil if and only if Status is SeatReservedTemp.
//  ReservedByUserID is set while SeatReservedTemp and stays on Paid
//  rows as a record of the buyer; release clears it.
//  SeatPaid is terminal: it never expires and release skips it.
//
// Fields:
//  ID               – primary key identifier.
//  EventID          – owning event.
//  SeatID           – underlying seat.
//  Status           – current availability state.
//  LockedUntil      – absolute hold deadline (nullable).
//  ReservedByUserID – holder of the current lock (nullable).
type EventSeat struct {
    ID               uint64     // event_seats.id
    EventID          uint64     // event_seats.event_id
    SeatID           uint64     // event_seats.seat_id
    Status           SeatStatus // event_seats.status
    LockedUntil      *time.Time // event_seats.locked_until (nullable)
    ReservedByUserID *uint64    // event_seats.reserved_by_user_id (nullable)
}
