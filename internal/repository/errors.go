// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to operate on a resource owned by someone else, while
// ErrConflict signals that a seat set could not be locked because
// another holder got there first.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a seat lock cannot be granted
// because at least one requested seat is paid or held with a live
// deadline. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a reservation transition is
// requested from a status that does not permit it, e.g. paying an
// already-paid reservation. Handlers should translate this into an
// HTTP 400 response.
var ErrInvalidState = errors.New("invalid state")

// ErrEventNotFound is returned when the referenced event does not
// exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatNotFound is returned when a seat is not configured for
// the referenced event.
var ErrSeatNotFound = errors.New("seat not found for event")

// ErrReservationNotFound is returned when the referenced
// reservation does not exist.
var ErrReservationNotFound = errors.New("reservation not found")
