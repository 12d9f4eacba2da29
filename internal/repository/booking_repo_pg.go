package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, user_id, flight_id, passengers, total_price_cents, status, created_at, updated_at, cancelled_at`

type PGBookingRepository struct {
	db querier
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b          domain.Booking
		passengers []byte
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.FlightID, &passengers, &b.TotalPriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.CancelledAt); err != nil {
		return nil, err
	}
	var records []passengerRecord
	if err := json.Unmarshal(passengers, &records); err != nil {
		return nil, fmt.Errorf("decode passengers of booking %s: %w", b.ID, err)
	}
	b.Passengers = fromPassengerRecords(records)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	passengers, err := json.Marshal(toPassengerRecords(b.Passengers))
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.UserID, b.FlightID, passengers, b.TotalPriceCents, b.Status, b.CreatedAt, b.UpdatedAt, b.CancelledAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, cancelled_at=$3, updated_at=$3
		WHERE id=$1 AND status=$4 RETURNING `+bookingColumns,
		id, domain.BookingStatusCancelled, at, domain.BookingStatusConfirmed))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return nil, r.statusMiss(ctx, id)
}

func (r *PGBookingRepository) RestoreConfirmed(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, cancelled_at=NULL, updated_at=now()
		WHERE id=$1 AND status=$3 RETURNING `+bookingColumns,
		id, domain.BookingStatusConfirmed, domain.BookingStatusCancelled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("cancelled booking", id)
		}
		return nil, fmt.Errorf("restore booking: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) statusMiss(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return statusError(current)
}

func statusError(b *domain.Booking) error {
	if b.Status == domain.BookingStatusCancelled {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyCancelled, b.ID)
	}
	return fmt.Errorf("booking %s is %s and cannot be cancelled", b.ID, b.Status)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
