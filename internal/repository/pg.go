package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS flights (
	id              TEXT PRIMARY KEY,
	flight_number   TEXT NOT NULL,
	airline         TEXT NOT NULL DEFAULT '',
	aircraft        TEXT NOT NULL DEFAULT '',
	origin          TEXT NOT NULL,
	destination     TEXT NOT NULL,
	departure_time  TIMESTAMPTZ NOT NULL,
	arrival_time    TIMESTAMPTZ NOT NULL,
	fare_cents      BIGINT NOT NULL CHECK (fare_cents >= 0),
	seats_total     INTEGER NOT NULL CHECK (seats_total > 0),
	seats_available INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT flights_seats_available_bounds CHECK (seats_available >= 0 AND seats_available <= seats_total)
);
CREATE INDEX IF NOT EXISTS flights_route_idx ON flights (lower(origin), lower(destination), departure_time);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bookings (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	flight_id         TEXT NOT NULL,
	passengers        JSONB NOT NULL,
	total_price_cents BIGINT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	cancelled_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS bookings_flight_idx ON bookings (flight_id, status);
`

// MigratePostgres creates the schema if it does not exist yet.
func MigratePostgres(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, pgSchema)
	return err
}

// PGUnitOfWork runs callbacks inside one pgx transaction.
type PGUnitOfWork struct {
	db *pgxpool.Pool
}

func NewUnitOfWork(db *pgxpool.Pool) *PGUnitOfWork {
	return &PGUnitOfWork{db: db}
}

func (u *PGUnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return retryTransient(ctx, func() error {
		tx, err := u.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(ctx, Repositories{
			Flights:  &PGFlightRepository{db: tx},
			Bookings: &PGBookingRepository{db: tx},
		}); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// retryTransient runs op again once when it failed with a transient storage error.
func retryTransient(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !isTransient(err) || ctx.Err() != nil {
		return err
	}
	return op()
}

// retryStatement is retryTransient for a single statement. Inside a transaction a failed
// statement aborts the whole transaction (25P02), so only the unit of work may retry.
func retryStatement(ctx context.Context, db querier, op func() error) error {
	if inTx(db) {
		return op()
	}
	return retryTransient(ctx, op)
}

// withTx runs fn in a new transaction, or directly on db when db already is one.
func withTx(ctx context.Context, db querier, fn func(q querier) error) error {
	if inTx(db) {
		return fn(db)
	}
	return retryTransient(ctx, func() error {
		return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			return fn(tx)
		})
	})
}

func inTx(db querier) bool {
	_, ok := db.(pgx.Tx)
	return ok
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return pgconn.SafeToRetry(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ UnitOfWork = (*PGUnitOfWork)(nil)
