package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func toBookingModel(b *domain.Booking) (bookingModel, error) {
	passengers, err := json.Marshal(toPassengerRecords(b.Passengers))
	if err != nil {
		return bookingModel{}, fmt.Errorf("encode passengers: %w", err)
	}
	return bookingModel{
		ID:              b.ID,
		UserID:          b.UserID,
		FlightID:        b.FlightID,
		Passengers:      datatypes.JSON(passengers),
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		CancelledAt:     b.CancelledAt,
	}, nil
}

func (m bookingModel) toDomain() (domain.Booking, error) {
	var records []passengerRecord
	if err := json.Unmarshal(m.Passengers, &records); err != nil {
		return domain.Booking{}, fmt.Errorf("decode passengers of booking %s: %w", m.ID, err)
	}
	return domain.Booking{
		ID:              m.ID,
		UserID:          m.UserID,
		FlightID:        m.FlightID,
		Passengers:      fromPassengerRecords(records),
		TotalPriceCents: m.TotalPriceCents,
		Status:          domain.BookingStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		CancelledAt:     m.CancelledAt,
	}, nil
}

func toBookings(models []bookingModel) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0, len(models))
	for _, m := range models {
		b, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *GormBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m, err := toBookingModel(b)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	b, err := m.toDomain()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	var models []bookingModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return toBookings(models)
}

func (r *GormBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	var models []bookingModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return toBookings(models)
}

func (r *GormBookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error) {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingStatusConfirmed)).
		Updates(map[string]any{
			"status":       string(domain.BookingStatusCancelled),
			"cancelled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("cancel booking: %w", res.Error)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, statusError(current)
	}
	return current, nil
}

func (r *GormBookingRepository) RestoreConfirmed(ctx context.Context, id string) (*domain.Booking, error) {
	res := r.db.WithContext(ctx).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingStatusCancelled)).
		Updates(map[string]any{
			"status":       string(domain.BookingStatusConfirmed),
			"cancelled_at": nil,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("restore booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("cancelled booking", id)
	}
	return r.GetByID(ctx, id)
}

var _ BookingRepository = (*GormBookingRepository)(nil)
