package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/events"
	"github.com/Domenick1991/flightbook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxPassengers = 5

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string, principal domain.Principal) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string, principal domain.Principal) (*domain.BookingDetails, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]domain.BookingDetails, error)
	ListAllBookings(ctx context.Context, principal domain.Principal) ([]domain.BookingDetails, error)
}

// Catalog is the part of the flight catalog the ledger depends on.
type Catalog interface {
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	GetFlightsByIDs(ctx context.Context, ids []string) ([]domain.Flight, error)
	AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error)
	InvalidateFlight(ctx context.Context, id string)
}

type CreateBookingInput struct {
	UserID     string
	FlightID   string
	Passengers []domain.Passenger
	// ExpectedTotalCents is the price the client showed; nil skips the check.
	ExpectedTotalCents *int64
}

type BookingService struct {
	bookings      repository.BookingRepository
	catalog       Catalog
	uow           repository.UnitOfWork
	publisher     events.Publisher
	logger        *zap.Logger
	maxPassengers int
	now           func() time.Time
}

type BookingServiceOption func(*BookingService)

// WithUnitOfWork makes creation and cancellation single transactions.
// Without it the ledger falls back to compensating writes.
func WithUnitOfWork(uow repository.UnitOfWork) BookingServiceOption {
	return func(s *BookingService) {
		s.uow = uow
	}
}

func WithPublisher(p events.Publisher) BookingServiceOption {
	return func(s *BookingService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMaxPassengers(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.maxPassengers = n
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	catalog Catalog,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:      bookings,
		catalog:       catalog,
		publisher:     events.NopPublisher{},
		logger:        logger,
		maxPassengers: DefaultMaxPassengers,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: missing booking owner", domain.ErrUnauthenticated)
	}
	if strings.TrimSpace(input.FlightID) == "" {
		return nil, fmt.Errorf("%w: flight is required", domain.ErrValidation)
	}
	if _, err := s.catalog.GetFlight(ctx, input.FlightID); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassengers(input.Passengers, s.maxPassengers); err != nil {
		return nil, err
	}

	var (
		booking *domain.Booking
		err     error
	)
	if s.uow != nil {
		booking, err = s.createAtomic(ctx, input)
	} else {
		booking, err = s.createCompensating(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("flight_id", booking.FlightID),
		zap.String("user_id", booking.UserID),
		zap.Int("seats", booking.SeatCount()),
	)
	s.publish(ctx, events.TypeBookingCreated, booking)
	return booking, nil
}

// createAtomic debits seats and writes the booking in one transaction.
func (s *BookingService) createAtomic(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	seats := len(input.Passengers)
	var booking *domain.Booking
	err := s.uow.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		flight, err := repos.Flights.AdjustSeats(ctx, input.FlightID, -seats)
		if err != nil {
			return seatsError(err)
		}
		b, err := s.newBooking(input, flight)
		if err != nil {
			return err
		}
		if err := repos.Bookings.Create(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.catalog.InvalidateFlight(ctx, input.FlightID)
	return booking, nil
}

// createCompensating debits seats first and credits them back if the booking cannot be written.
func (s *BookingService) createCompensating(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	seats := len(input.Passengers)
	flight, err := s.catalog.AdjustSeats(ctx, input.FlightID, -seats)
	if err != nil {
		return nil, seatsError(err)
	}

	booking, err := s.newBooking(input, flight)
	if err == nil {
		err = s.bookings.Create(ctx, booking)
	}
	if err != nil {
		s.creditSeats(ctx, input.FlightID, seats, err)
		return nil, err
	}
	return booking, nil
}

// newBooking prices the booking from the flight row returned by the seat debit.
func (s *BookingService) newBooking(input CreateBookingInput, flight *domain.Flight) (*domain.Booking, error) {
	total := flight.FareCents * int64(len(input.Passengers))
	if input.ExpectedTotalCents != nil && *input.ExpectedTotalCents != total {
		return nil, fmt.Errorf("%w: total is %d cents, client expected %d", domain.ErrFareChanged, total, *input.ExpectedTotalCents)
	}

	now := s.now().UTC()
	passengers := make([]domain.Passenger, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		passengers = append(passengers, domain.Passenger{
			Name:      strings.TrimSpace(p.Name),
			Document:  strings.TrimSpace(p.Document),
			SeatLabel: strings.TrimSpace(p.SeatLabel),
		})
	}
	return &domain.Booking{
		ID:              uuid.NewString(),
		UserID:          input.UserID,
		FlightID:        flight.ID,
		Passengers:      passengers,
		TotalPriceCents: total,
		Status:          domain.BookingStatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id string, principal domain.Principal) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanRead(current.UserID) {
		return nil, fmt.Errorf("%w: booking %s belongs to another user", domain.ErrForbidden, id)
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyCancelled, id)
	}

	var cancelled *domain.Booking
	if s.uow != nil {
		cancelled, err = s.cancelAtomic(ctx, current)
	} else {
		cancelled, err = s.cancelCompensating(ctx, current)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", cancelled.ID),
		zap.String("flight_id", cancelled.FlightID),
		zap.String("by", principal.UserID),
	)
	s.publish(ctx, events.TypeBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) cancelAtomic(ctx context.Context, current *domain.Booking) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := s.uow.Atomic(ctx, func(ctx context.Context, repos repository.Repositories) error {
		b, err := repos.Bookings.MarkCancelled(ctx, current.ID, s.now().UTC())
		if err != nil {
			return err
		}
		if _, err := repos.Flights.AdjustSeats(ctx, b.FlightID, b.SeatCount()); err != nil {
			return s.creditError(b, err)
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.catalog.InvalidateFlight(ctx, current.FlightID)
	return cancelled, nil
}

// cancelCompensating marks the booking cancelled, then credits seats, restoring the booking on failure.
func (s *BookingService) cancelCompensating(ctx context.Context, current *domain.Booking) (*domain.Booking, error) {
	cancelled, err := s.bookings.MarkCancelled(ctx, current.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.AdjustSeats(ctx, cancelled.FlightID, cancelled.SeatCount()); err != nil {
		if err := s.creditError(cancelled, err); err != nil {
			if _, restoreErr := s.bookings.RestoreConfirmed(context.WithoutCancel(ctx), cancelled.ID); restoreErr != nil {
				s.logger.Error("restore booking after failed seat credit",
					zap.String("booking_id", cancelled.ID),
					zap.Error(restoreErr),
				)
			}
			return nil, err
		}
	}
	return cancelled, nil
}

// creditError classifies a failed seat credit on cancellation. A missing flight is tolerated.
func (s *BookingService) creditError(b *domain.Booking, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("cancelled booking of a missing flight",
			zap.String("booking_id", b.ID),
			zap.String("flight_id", b.FlightID),
		)
		return nil
	case errors.Is(err, domain.ErrSeatOverflow):
		s.logger.DPanic("seat inventory invariant violated",
			zap.String("booking_id", b.ID),
			zap.String("flight_id", b.FlightID),
			zap.Int("seats", b.SeatCount()),
			zap.Error(err),
		)
		return fmt.Errorf("cancel booking %s: %w", b.ID, err)
	default:
		return err
	}
}

// creditSeats returns seats debited for a booking that was never written.
func (s *BookingService) creditSeats(ctx context.Context, flightID string, seats int, cause error) {
	if _, err := s.catalog.AdjustSeats(context.WithoutCancel(ctx), flightID, seats); err != nil {
		s.logger.Error("compensate seat debit",
			zap.String("flight_id", flightID),
			zap.Int("seats", seats),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
	}
}

func (s *BookingService) GetBooking(ctx context.Context, id string, principal domain.Principal) (*domain.BookingDetails, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanRead(b.UserID) {
		return nil, fmt.Errorf("%w: booking %s belongs to another user", domain.ErrForbidden, id)
	}

	details := &domain.BookingDetails{Booking: *b}
	flight, err := s.catalog.GetFlight(ctx, b.FlightID)
	switch {
	case err == nil:
		details.Flight = flight
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return details, nil
}

func (s *BookingService) ListBookingsForUser(ctx context.Context, userID string) ([]domain.BookingDetails, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withFlights(ctx, bookings)
}

func (s *BookingService) ListAllBookings(ctx context.Context, principal domain.Principal) ([]domain.BookingDetails, error) {
	if !principal.IsAdmin() {
		return nil, fmt.Errorf("%w: administrator role required", domain.ErrForbidden)
	}
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withFlights(ctx, bookings)
}

func (s *BookingService) withFlights(ctx context.Context, bookings []domain.Booking) ([]domain.BookingDetails, error) {
	ids := make([]string, 0, len(bookings))
	seen := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.FlightID]; !ok {
			seen[b.FlightID] = struct{}{}
			ids = append(ids, b.FlightID)
		}
	}

	flights, err := s.catalog.GetFlightsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Flight, len(flights))
	for i := range flights {
		byID[flights[i].ID] = &flights[i]
	}

	details := make([]domain.BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		details = append(details, domain.BookingDetails{Booking: b, Flight: byID[b.FlightID]})
	}
	return details, nil
}

func (s *BookingService) publish(ctx context.Context, eventType events.Type, b *domain.Booking) {
	event := events.NewBookingEvent(eventType, *b, s.now())
	if err := s.publisher.PublishBooking(ctx, event); err != nil {
		s.logger.Warn("publish booking event",
			zap.String("type", string(eventType)),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

// seatsError maps a failed seat debit to the ledger's error.
func seatsError(err error) error {
	if errors.Is(err, domain.ErrInsufficientSeats) {
		return fmt.Errorf("%w: %w", domain.ErrSeatsUnavailable, err)
	}
	return err
}

var _ BookingUseCase = (*BookingService)(nil)
