package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	// BookingStatusPending is part of the wire format but never produced: bookings are confirmed on creation.
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Passenger struct {
	Name      string
	Document  string
	SeatLabel string
}

type Booking struct {
	ID              string
	UserID          string
	FlightID        string
	Passengers      []Passenger
	TotalPriceCents int64
	Status          BookingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CancelledAt     *time.Time
}

// SeatCount is the number of seats the booking holds on its flight.
func (b Booking) SeatCount() int {
	return len(b.Passengers)
}

func (b Booking) OwnedBy(userID string) bool {
	return b.UserID == userID
}

// BookingDetails is a booking together with its flight, nil when the flight was deleted.
type BookingDetails struct {
	Booking
	Flight *Flight
}

// ValidatePassengers checks the party list of a new booking.
func ValidatePassengers(passengers []Passenger, maxParty int) error {
	if len(passengers) == 0 {
		return fmt.Errorf("%w: at least one passenger is required", ErrValidation)
	}
	if len(passengers) > maxParty {
		return fmt.Errorf("%w: at most %d passengers per booking", ErrValidation, maxParty)
	}
	for i, p := range passengers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: passenger %d: name is required", ErrValidation, i+1)
		}
		if strings.TrimSpace(p.Document) == "" {
			return fmt.Errorf("%w: passenger %d: travel document is required", ErrValidation, i+1)
		}
		if strings.TrimSpace(p.SeatLabel) == "" {
			return fmt.Errorf("%w: passenger %d: seat is required", ErrValidation, i+1)
		}
	}
	return nil
}
