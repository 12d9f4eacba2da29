package domain

import (
	"fmt"
	"strings"
	"time"
)

type Flight struct {
	ID             string
	FlightNumber   string
	Airline        string
	Aircraft       string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	FareCents      int64
	SeatsTotal     int
	SeatsAvailable int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (f Flight) Duration() time.Duration {
	return f.ArrivalTime.Sub(f.DepartureTime)
}

// BookedSeats is the number of seats held by confirmed bookings.
func (f Flight) BookedSeats() int {
	return f.SeatsTotal - f.SeatsAvailable
}

// FlightSpec is the administrator input for a new flight.
type FlightSpec struct {
	FlightNumber  string
	Airline       string
	Aircraft      string
	Origin        string
	Destination   string
	DepartureTime time.Time
	ArrivalTime   time.Time
	FareCents     int64
	Capacity      int
}

func (s FlightSpec) Validate() error {
	if strings.TrimSpace(s.FlightNumber) == "" {
		return fmt.Errorf("%w: flight number is required", ErrValidation)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	if s.FareCents < 0 {
		return fmt.Errorf("%w: fare must not be negative", ErrValidation)
	}
	return validateRoute(s.Origin, s.Destination, s.DepartureTime, s.ArrivalTime)
}

// NewFlight builds a fully available flight from a validated spec.
func NewFlight(id string, s FlightSpec, now time.Time) Flight {
	return Flight{
		ID:             id,
		FlightNumber:   strings.TrimSpace(s.FlightNumber),
		Airline:        strings.TrimSpace(s.Airline),
		Aircraft:       strings.TrimSpace(s.Aircraft),
		Origin:         strings.TrimSpace(s.Origin),
		Destination:    strings.TrimSpace(s.Destination),
		DepartureTime:  s.DepartureTime.UTC(),
		ArrivalTime:    s.ArrivalTime.UTC(),
		FareCents:      s.FareCents,
		SeatsTotal:     s.Capacity,
		SeatsAvailable: s.Capacity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// FlightPatch carries administrator changes; nil fields are left untouched.
type FlightPatch struct {
	FlightNumber   *string
	Airline        *string
	Aircraft       *string
	Origin         *string
	Destination    *string
	DepartureTime  *time.Time
	ArrivalTime    *time.Time
	FareCents      *int64
	SeatsTotal     *int
	SeatsAvailable *int
}

func (p FlightPatch) IsEmpty() bool {
	return p == FlightPatch{}
}

// Apply returns f with the patch applied. It does not validate.
func (p FlightPatch) Apply(f Flight) Flight {
	if p.FlightNumber != nil {
		f.FlightNumber = strings.TrimSpace(*p.FlightNumber)
	}
	if p.Airline != nil {
		f.Airline = strings.TrimSpace(*p.Airline)
	}
	if p.Aircraft != nil {
		f.Aircraft = strings.TrimSpace(*p.Aircraft)
	}
	if p.Origin != nil {
		f.Origin = strings.TrimSpace(*p.Origin)
	}
	if p.Destination != nil {
		f.Destination = strings.TrimSpace(*p.Destination)
	}
	if p.DepartureTime != nil {
		f.DepartureTime = p.DepartureTime.UTC()
	}
	if p.ArrivalTime != nil {
		f.ArrivalTime = p.ArrivalTime.UTC()
	}
	if p.FareCents != nil {
		f.FareCents = *p.FareCents
	}
	if p.SeatsAvailable != nil {
		f.SeatsAvailable = *p.SeatsAvailable
	}
	return f
}

// ValidateAgainst checks the patch against the current state of the flight.
func (p FlightPatch) ValidateAgainst(current Flight) error {
	if p.SeatsTotal != nil && *p.SeatsTotal != current.SeatsTotal {
		return fmt.Errorf("%w: seats total cannot be changed after creation", ErrValidation)
	}
	next := p.Apply(current)
	if next.FlightNumber == "" {
		return fmt.Errorf("%w: flight number is required", ErrValidation)
	}
	if next.FareCents < 0 {
		return fmt.Errorf("%w: fare must not be negative", ErrValidation)
	}
	if next.SeatsAvailable < 0 || next.SeatsAvailable > next.SeatsTotal {
		return fmt.Errorf("%w: seats available must be between 0 and %d", ErrValidation, next.SeatsTotal)
	}
	return validateRoute(next.Origin, next.Destination, next.DepartureTime, next.ArrivalTime)
}

func validateRoute(origin, destination string, departure, arrival time.Time) error {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrValidation)
	}
	if strings.EqualFold(origin, destination) {
		return fmt.Errorf("%w: destination must differ from origin", ErrValidation)
	}
	if departure.IsZero() || arrival.IsZero() {
		return fmt.Errorf("%w: departure and arrival times are required", ErrValidation)
	}
	if !arrival.After(departure) {
		return fmt.Errorf("%w: arrival must be after departure", ErrValidation)
	}
	return nil
}

// FlightFilter narrows a flight listing. Zero values mean "any".
type FlightFilter struct {
	Origin      string
	Destination string
	DepartFrom  time.Time
	DepartTo    time.Time
	Limit       int
	Offset      int
}

const (
	DefaultFlightPageSize = 50
	MaxFlightPageSize     = 200
)

// Normalize clamps paging to sane bounds.
func (f FlightFilter) Normalize() FlightFilter {
	f.Origin = strings.TrimSpace(f.Origin)
	f.Destination = strings.TrimSpace(f.Destination)
	if f.Limit <= 0 {
		f.Limit = DefaultFlightPageSize
	}
	if f.Limit > MaxFlightPageSize {
		f.Limit = MaxFlightPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// IsDefault reports whether the filter is the unfiltered first page.
func (f FlightFilter) IsDefault() bool {
	n := f.Normalize()
	return n.Origin == "" && n.Destination == "" && n.DepartFrom.IsZero() && n.DepartTo.IsZero() &&
		n.Offset == 0 && n.Limit == DefaultFlightPageSize
}
