// Package storage opens the configured persistence backend and exposes its repositories.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/config"
	"github.com/Domenick1991/flightbook/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const connectAttempts = 5

// Store bundles the repositories of one backend.
// UnitOfWork is nil when the backend cannot run multi-record transactions.
type Store struct {
	Flights    repository.FlightRepository
	Bookings   repository.BookingRepository
	Users      repository.UserRepository
	UnitOfWork repository.UnitOfWork

	ping  func(ctx context.Context) error
	close func()
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		return openPostgres(ctx, cfg.Database, logger)
	case config.StorageDriverMongo:
		return openMongo(ctx, cfg.Mongo, logger)
	case config.StorageDriverSQLite:
		db, err := repository.OpenSQLite(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite storage ready", zap.String("path", cfg.SQLite.Path))
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewGormStore wraps an already migrated gorm database.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Flights:    repository.NewGormFlightRepository(db),
		Bookings:   repository.NewGormBookingRepository(db),
		Users:      repository.NewGormUserRepository(db),
		UnitOfWork: repository.NewGormUnitOfWork(db),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Retries give a database container time to start.
	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		logger.Warn("postgres connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", connectAttempts),
			zap.Error(err),
		)
		if attempt == connectAttempts {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if err := repository.MigratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	logger.Info("postgres storage ready", zap.String("host", cfg.Host), zap.String("db", cfg.Name))

	return &Store{
		Flights:    repository.NewFlightRepository(pool),
		Bookings:   repository.NewBookingRepository(pool),
		Users:      repository.NewUserRepository(pool),
		UnitOfWork: repository.NewUnitOfWork(pool),
		ping:       pool.Ping,
		close:      pool.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	flights := repository.NewMongoFlightRepository(db)
	if cfg.Transactions {
		flights = flights.WithTransactions(client)
	}
	store := &Store{
		Flights:  flights,
		Bookings: repository.NewMongoBookingRepository(db),
		Users:    repository.NewMongoUserRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: func() {
			_ = client.Disconnect(context.Background())
		},
	}
	if cfg.Transactions {
		store.UnitOfWork = repository.NewMongoUnitOfWork(client, db)
	}
	logger.Info("mongo storage ready",
		zap.String("database", cfg.Database),
		zap.Bool("transactions", cfg.Transactions),
	)
	return store, nil
}
