package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
)

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Flight, error)
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	// Update applies the patch. A SeatsAvailable outside [0, seats_total - held] fails with
	// ErrValidation, where held is the passenger count of the flight's confirmed bookings.
	Update(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error)
	// Delete removes a flight without confirmed bookings, otherwise ErrFlightHasBookings.
	// The check reads the bookings themselves, not seats_available.
	Delete(ctx context.Context, id string) error
	// AdjustSeats adds delta to seats_available in one guarded update.
	// It fails with ErrInsufficientSeats or ErrSeatOverflow and changes nothing.
	AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	ListAll(ctx context.Context) ([]domain.Booking, error)
	// MarkCancelled moves a confirmed booking to cancelled; a second call fails with ErrAlreadyCancelled.
	MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error)
	// RestoreConfirmed undoes MarkCancelled.
	RestoreConfirmed(ctx context.Context, id string) (*domain.Booking, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Repositories are handed to a UnitOfWork callback, bound to its transaction.
type Repositories struct {
	Flights  FlightRepository
	Bookings BookingRepository
}

type UnitOfWork interface {
	// Atomic runs fn so that every write made through repos commits or rolls back together.
	Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

func seatGuardError(f *domain.Flight, delta int) error {
	if delta < 0 {
		return fmt.Errorf("%w: flight %s has %d seats left, %d requested", domain.ErrInsufficientSeats, f.ID, f.SeatsAvailable, -delta)
	}
	return fmt.Errorf("%w: flight %s has %d of %d seats available, cannot release %d", domain.ErrSeatOverflow, f.ID, f.SeatsAvailable, f.SeatsTotal, delta)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
}

func seatsOutOfRange(f *domain.Flight, seats int) error {
	return fmt.Errorf("%w: seats available %d must be between 0 and %d", domain.ErrValidation, seats, f.SeatsTotal)
}

// checkSeatsPatch bounds an admin seats_available override by the seats held by confirmed bookings.
func checkSeatsPatch(f *domain.Flight, seats, held int) error {
	if seats < 0 || seats > f.SeatsTotal {
		return seatsOutOfRange(f, seats)
	}
	if seats > f.SeatsTotal-held {
		return fmt.Errorf("%w: seats available %d exceeds %d, confirmed bookings hold %d of %d seats",
			domain.ErrValidation, seats, f.SeatsTotal-held, held, f.SeatsTotal)
	}
	return nil
}

func hasBookings(id string) error {
	return fmt.Errorf("%w: %s", domain.ErrFlightHasBookings, id)
}

// passengerRecord is the JSON shape of a passenger in relational storage.
type passengerRecord struct {
	Name      string `json:"name"`
	Document  string `json:"document"`
	SeatLabel string `json:"seat_label"`
}

func toPassengerRecords(ps []domain.Passenger) []passengerRecord {
	out := make([]passengerRecord, 0, len(ps))
	for _, p := range ps {
		out = append(out, passengerRecord{Name: p.Name, Document: p.Document, SeatLabel: p.SeatLabel})
	}
	return out
}

func fromPassengerRecords(rs []passengerRecord) []domain.Passenger {
	out := make([]domain.Passenger, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.Passenger{Name: r.Name, Document: r.Document, SeatLabel: r.SeatLabel})
	}
	return out
}
