package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"gorm.io/gorm"
)

type GormFlightRepository struct {
	db *gorm.DB
}

func NewGormFlightRepository(db *gorm.DB) *GormFlightRepository {
	return &GormFlightRepository{db: db}
}

func toFlightModel(f *domain.Flight) flightModel {
	return flightModel{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Airline:        f.Airline,
		Aircraft:       f.Aircraft,
		Origin:         f.Origin,
		Destination:    f.Destination,
		DepartureTime:  f.DepartureTime.UTC(),
		ArrivalTime:    f.ArrivalTime.UTC(),
		FareCents:      f.FareCents,
		SeatsTotal:     f.SeatsTotal,
		SeatsAvailable: f.SeatsAvailable,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func (m flightModel) toDomain() domain.Flight {
	return domain.Flight{
		ID:             m.ID,
		FlightNumber:   m.FlightNumber,
		Airline:        m.Airline,
		Aircraft:       m.Aircraft,
		Origin:         m.Origin,
		Destination:    m.Destination,
		DepartureTime:  m.DepartureTime.UTC(),
		ArrivalTime:    m.ArrivalTime.UTC(),
		FareCents:      m.FareCents,
		SeatsTotal:     m.SeatsTotal,
		SeatsAvailable: m.SeatsAvailable,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toFlights(models []flightModel) []domain.Flight {
	flights := make([]domain.Flight, 0, len(models))
	for _, m := range models {
		flights = append(flights, m.toDomain())
	}
	return flights
}

func (r *GormFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	m := toFlightModel(f)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

func (r *GormFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	var m flightModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	f := m.toDomain()
	return &f, nil
}

func (r *GormFlightRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Flight, error) {
	if len(ids) == 0 {
		return []domain.Flight{}, nil
	}
	var models []flightModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("get flights: %w", err)
	}
	return toFlights(models), nil
}

func (r *GormFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	filter = filter.Normalize()

	q := r.db.WithContext(ctx).Model(&flightModel{})
	if filter.Origin != "" {
		q = q.Where("lower(origin) = lower(?)", filter.Origin)
	}
	if filter.Destination != "" {
		q = q.Where("lower(destination) = lower(?)", filter.Destination)
	}
	if !filter.DepartFrom.IsZero() {
		q = q.Where("departure_time >= ?", filter.DepartFrom.UTC())
	}
	if !filter.DepartTo.IsZero() {
		q = q.Where("departure_time < ?", filter.DepartTo.UTC())
	}

	var models []flightModel
	if err := q.Order("departure_time").Order("id").Limit(filter.Limit).Offset(filter.Offset).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	return toFlights(models), nil
}

func (r *GormFlightRepository) Update(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.FlightNumber != nil {
		updates["flight_number"] = strings.TrimSpace(*patch.FlightNumber)
	}
	if patch.Airline != nil {
		updates["airline"] = strings.TrimSpace(*patch.Airline)
	}
	if patch.Aircraft != nil {
		updates["aircraft"] = strings.TrimSpace(*patch.Aircraft)
	}
	if patch.Origin != nil {
		updates["origin"] = strings.TrimSpace(*patch.Origin)
	}
	if patch.Destination != nil {
		updates["destination"] = strings.TrimSpace(*patch.Destination)
	}
	if patch.DepartureTime != nil {
		updates["departure_time"] = patch.DepartureTime.UTC()
	}
	if patch.ArrivalTime != nil {
		updates["arrival_time"] = patch.ArrivalTime.UTC()
	}
	if patch.FareCents != nil {
		updates["fare_cents"] = *patch.FareCents
	}

	if patch.SeatsAvailable != nil {
		updates["seats_available"] = *patch.SeatsAvailable
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current flightModel
		if err := tx.Where("id = ?", id).Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("flight", id)
			}
			return fmt.Errorf("get flight: %w", err)
		}
		if patch.SeatsAvailable != nil {
			held, err := gormHeldSeats(tx, id)
			if err != nil {
				return err
			}
			f := current.toDomain()
			if err := checkSeatsPatch(&f, *patch.SeatsAvailable, held); err != nil {
				return err
			}
		}
		if err := tx.Model(&flightModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update flight: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// gormHeldSeats counts the passengers of the flight's confirmed bookings.
func gormHeldSeats(tx *gorm.DB, flightID string) (int, error) {
	var held int
	err := tx.Model(&bookingModel{}).
		Select("COALESCE(SUM(json_array_length(passengers)), 0)").
		Where("flight_id = ? AND status = ?", flightID, string(domain.BookingStatusConfirmed)).
		Scan(&held).Error
	if err != nil {
		return 0, fmt.Errorf("held seats: %w", err)
	}
	return held, nil
}

func (r *GormFlightRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current flightModel
		if err := tx.Select("id").Where("id = ?", id).Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("flight", id)
			}
			return fmt.Errorf("get flight: %w", err)
		}
		var booked int64
		if err := tx.Model(&bookingModel{}).
			Where("flight_id = ? AND status = ?", id, string(domain.BookingStatusConfirmed)).
			Count(&booked).Error; err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if booked > 0 {
			return hasBookings(id)
		}
		if err := tx.Where("id = ?", id).Delete(&flightModel{}).Error; err != nil {
			return fmt.Errorf("delete flight: %w", err)
		}
		return nil
	})
}

func (r *GormFlightRepository) AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error) {
	if delta == 0 {
		return r.GetByID(ctx, id)
	}

	res := r.db.WithContext(ctx).Model(&flightModel{}).
		Where("id = ? AND seats_available + ? >= 0 AND seats_available + ? <= seats_total", id, delta, delta).
		Updates(map[string]any{
			"seats_available": gorm.Expr("seats_available + ?", delta),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("adjust seats: %w", res.Error)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, seatGuardError(current, delta)
	}
	return current, nil
}

var _ FlightRepository = (*GormFlightRepository)(nil)
