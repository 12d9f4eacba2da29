package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type flightModel struct {
	ID             string    `gorm:"primaryKey;size:36"`
	FlightNumber   string    `gorm:"size:32;not null"`
	Airline        string    `gorm:"size:128"`
	Aircraft       string    `gorm:"size:128"`
	Origin         string    `gorm:"size:128;not null;index:idx_flights_route,priority:1"`
	Destination    string    `gorm:"size:128;not null;index:idx_flights_route,priority:2"`
	DepartureTime  time.Time `gorm:"not null;index:idx_flights_route,priority:3"`
	ArrivalTime    time.Time `gorm:"not null"`
	FareCents      int64     `gorm:"not null"`
	SeatsTotal     int       `gorm:"not null"`
	SeatsAvailable int       `gorm:"not null;check:chk_flights_seats_available,seats_available >= 0 AND seats_available <= seats_total"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (flightModel) TableName() string { return "flights" }

type bookingModel struct {
	ID              string         `gorm:"primaryKey;size:36"`
	UserID          string         `gorm:"size:36;not null;index"`
	FlightID        string         `gorm:"size:36;not null;index"`
	Passengers      datatypes.JSON `gorm:"not null"`
	TotalPriceCents int64          `gorm:"not null"`
	Status          string         `gorm:"size:16;not null"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
	CancelledAt     *time.Time
}

func (bookingModel) TableName() string { return "bookings" }

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null"`
	CreatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

// OpenSQLite opens an embedded database and migrates it. ":memory:" is accepted.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := MigrateGorm(db); err != nil {
		return nil, err
	}
	return db, nil
}

func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&flightModel{}, &bookingModel{}, &userModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Repositories{
			Flights:  &GormFlightRepository{db: tx},
			Bookings: &GormBookingRepository{db: tx},
		})
	})
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ UnitOfWork = (*GormUnitOfWork)(nil)
