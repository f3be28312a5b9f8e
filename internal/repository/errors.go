// Package repository contains data access logic separated from HTTP
// handlers and the reservation service.  This file defines the error
// values shared by every store implementation.  Sentinel errors let
// higher layers distinguish failure scenarios with errors.Is without
// depending on storage details: a handler translates ErrBookingNotFound
// into HTTP 404 and ErrBusy into HTTP 503 no matter which store
// produced it.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCinemaNotFound is returned when the referenced cinema does not
// exist.  Handlers should translate this into an HTTP 404 response.
var ErrCinemaNotFound = errors.New("cinema not found")

// ErrShowtimeNotFound is returned when no showtime record exists for a
// requested key.  Read paths surface it as an empty result; the
// reservation path surfaces it as 404 only when provisioning was not
// requested.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrBookingNotFound is returned when a booking id does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrBookingCancelled is returned when cancellation is attempted on a
// booking that has already been cancelled.  It is deliberately distinct
// from ErrBookingNotFound so clients can show the right message.
var ErrBookingCancelled = errors.New("booking already cancelled")

// ErrBusy is returned when the store could not serialize an operation
// against concurrent writers within its retry budget.  The request made
// no state change and is safe to retry with backoff.
var ErrBusy = errors.New("storage busy, retry later")

// SeatConflictError reports that one or more requested seats were
// already occupied at commit time.  Conflicts holds exactly the
// overlapping labels so the caller can re-prompt seat selection.  The
// reservation it aborted made no state change.
type SeatConflictError struct {
	Conflicts []string
}

// Error implements the error interface.
func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Conflicts, ","))
}

// AsSeatConflict unwraps err into a SeatConflictError when possible.
func AsSeatConflict(err error) (*SeatConflictError, bool) {
	var sc *SeatConflictError
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}
