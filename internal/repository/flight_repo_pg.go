package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `id, flight_number, airline, aircraft, origin, destination, departure_time, arrival_time, fare_cents, seats_total, seats_available, created_at, updated_at`

const (
	pgLockFlightSQL   = `SELECT ` + flightColumns + ` FROM flights WHERE id = $1 FOR UPDATE`
	pgHeldSeatsSQL    = `SELECT COALESCE(SUM(jsonb_array_length(passengers)), 0) FROM bookings WHERE flight_id = $1 AND status = $2`
	pgHasBookingsSQL  = `SELECT EXISTS (SELECT 1 FROM bookings WHERE flight_id = $1 AND status = $2)`
	pgDeleteFlightSQL = `DELETE FROM flights WHERE id = $1`
	pgAdjustSeatsSQL  = `UPDATE flights
		SET seats_available = seats_available + $2, updated_at = now()
		WHERE id = $1 AND seats_available + $2 >= 0 AND seats_available + $2 <= seats_total
		RETURNING ` + flightColumns
)

type PGFlightRepository struct {
	db querier
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.Aircraft, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.FareCents, &f.SeatsTotal, &f.SeatsAvailable, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	_, err := r.db.Exec(ctx, `INSERT INTO flights (`+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		f.ID, f.FlightNumber, f.Airline, f.Aircraft, f.Origin, f.Destination, f.DepartureTime, f.ArrivalTime, f.FareCents, f.SeatsTotal, f.SeatsAvailable, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return f, nil
}

func (r *PGFlightRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Flight, error) {
	if len(ids) == 0 {
		return []domain.Flight{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get flights: %w", err)
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Origin != "" {
		where = append(where, "lower(origin) = lower("+arg(filter.Origin)+")")
	}
	if filter.Destination != "" {
		where = append(where, "lower(destination) = lower("+arg(filter.Destination)+")")
	}
	if !filter.DepartFrom.IsZero() {
		where = append(where, "departure_time >= "+arg(filter.DepartFrom.UTC()))
	}
	if !filter.DepartTo.IsZero() {
		where = append(where, "departure_time < "+arg(filter.DepartTo.UTC()))
	}

	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY departure_time, id LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) Update(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	args := []any{id}
	var sets []string
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.FlightNumber != nil {
		set("flight_number", strings.TrimSpace(*patch.FlightNumber))
	}
	if patch.Airline != nil {
		set("airline", strings.TrimSpace(*patch.Airline))
	}
	if patch.Aircraft != nil {
		set("aircraft", strings.TrimSpace(*patch.Aircraft))
	}
	if patch.Origin != nil {
		set("origin", strings.TrimSpace(*patch.Origin))
	}
	if patch.Destination != nil {
		set("destination", strings.TrimSpace(*patch.Destination))
	}
	if patch.DepartureTime != nil {
		set("departure_time", patch.DepartureTime.UTC())
	}
	if patch.ArrivalTime != nil {
		set("arrival_time", patch.ArrivalTime.UTC())
	}
	if patch.FareCents != nil {
		set("fare_cents", *patch.FareCents)
	}
	if patch.SeatsAvailable != nil {
		set("seats_available", *patch.SeatsAvailable)
	}
	sets = append(sets, "updated_at = now()")
	query := `UPDATE flights SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + flightColumns

	if patch.SeatsAvailable == nil {
		return updateFlight(ctx, r.db, id, query, args)
	}

	var updated *domain.Flight
	err := withTx(ctx, r.db, func(q querier) error {
		current, err := lockFlight(ctx, q, id)
		if err != nil {
			return err
		}
		held, err := heldSeats(ctx, q, id)
		if err != nil {
			return err
		}
		if err := checkSeatsPatch(current, *patch.SeatsAvailable, held); err != nil {
			return err
		}
		updated, err = updateFlight(ctx, q, id, query, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func updateFlight(ctx context.Context, q querier, id, query string, args []any) (*domain.Flight, error) {
	f, err := scanFlight(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("update flight: %w", err)
	}
	return f, nil
}

// lockFlight reads the flight under a row lock. Booking and cancel transactions take the
// same lock through AdjustSeats, so the bookings read afterwards are settled.
func lockFlight(ctx context.Context, q querier, id string) (*domain.Flight, error) {
	f, err := scanFlight(q.QueryRow(ctx, pgLockFlightSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("lock flight: %w", err)
	}
	return f, nil
}

func heldSeats(ctx context.Context, q querier, id string) (int, error) {
	var held int
	if err := q.QueryRow(ctx, pgHeldSeatsSQL, id, string(domain.BookingStatusConfirmed)).Scan(&held); err != nil {
		return 0, fmt.Errorf("held seats: %w", err)
	}
	return held, nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(q querier) error {
		if _, err := lockFlight(ctx, q, id); err != nil {
			return err
		}
		var booked bool
		if err := q.QueryRow(ctx, pgHasBookingsSQL, id, string(domain.BookingStatusConfirmed)).Scan(&booked); err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if booked {
			return hasBookings(id)
		}
		if _, err := q.Exec(ctx, pgDeleteFlightSQL, id); err != nil {
			return fmt.Errorf("delete flight: %w", err)
		}
		return nil
	})
}

func (r *PGFlightRepository) AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error) {
	if delta == 0 {
		return r.GetByID(ctx, id)
	}

	var updated *domain.Flight
	err := retryStatement(ctx, r.db, func() error {
		f, err := scanFlight(r.db.QueryRow(ctx, pgAdjustSeatsSQL, id, delta))
		if err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjust seats: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, seatGuardError(current, delta)
}

var _ FlightRepository = (*PGFlightRepository)(nil)
