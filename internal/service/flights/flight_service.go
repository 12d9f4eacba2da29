package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	CreateFlight(ctx context.Context, spec domain.FlightSpec) (*domain.Flight, error)
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	GetFlightsByIDs(ctx context.Context, ids []string) ([]domain.Flight, error)
	ListFlights(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	UpdateFlight(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error)
	DeleteFlight(ctx context.Context, id string) error
	AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error)
	InvalidateFlight(ctx context.Context, id string)
}

type FlightCache interface {
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight) error
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlight(ctx context.Context, id string) error
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  FlightCache
	logger *zap.Logger
	now    func() time.Time
}

// NewFlightService builds the catalog. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, logger *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

func (s *FlightService) CreateFlight(ctx context.Context, spec domain.FlightSpec) (*domain.Flight, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	flight := domain.NewFlight(uuid.NewString(), spec, s.now().UTC())
	if err := s.repo.Create(ctx, &flight); err != nil {
		return nil, err
	}
	s.InvalidateFlight(ctx, flight.ID)

	s.logger.Info("flight created",
		zap.String("flight_id", flight.ID),
		zap.String("flight_number", flight.FlightNumber),
		zap.Int("seats_total", flight.SeatsTotal),
	)
	return &flight, nil
}

func (s *FlightService) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlight(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, flight); err != nil {
			s.logger.Debug("cache flight", zap.String("flight_id", id), zap.Error(err))
		}
	}
	return flight, nil
}

func (s *FlightService) GetFlightsByIDs(ctx context.Context, ids []string) ([]domain.Flight, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// ListFlights serves the unfiltered first page from cache; filtered queries always hit storage.
func (s *FlightService) ListFlights(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	cacheable := s.cache != nil && filter.IsDefault()
	if cacheable {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Debug("cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) UpdateFlight(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.ValidateAgainst(*current); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.InvalidateFlight(ctx, id)
	return updated, nil
}

func (s *FlightService) DeleteFlight(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateFlight(ctx, id)
	s.logger.Info("flight deleted", zap.String("flight_id", id))
	return nil
}

// AdjustSeats applies delta to the seat inventory outside of any caller transaction.
func (s *FlightService) AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error) {
	flight, err := s.repo.AdjustSeats(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.InvalidateFlight(ctx, id)
	return flight, nil
}

// InvalidateFlight drops cached copies of the flight and of the default listing.
func (s *FlightService) InvalidateFlight(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, id); err != nil {
		s.logger.Warn("invalidate flight cache", zap.String("flight_id", id), zap.Error(err))
	}
}

var _ FlightUseCase = (*FlightService)(nil)
