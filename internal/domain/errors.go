package domain

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email in use")

	// ErrSeatsUnavailable is what callers of the booking ledger see when a booking would oversell.
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrFareChanged      = errors.New("fare changed")

	// Seat inventory guard failures reported by storage.
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrSeatOverflow      = errors.New("seat overflow")

	ErrFlightHasBookings = errors.New("flight has confirmed bookings")
)
