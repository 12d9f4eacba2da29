package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	flightsCollection  = "flights"
	bookingsCollection = "bookings"
	usersCollection    = "users"
)

type flightDoc struct {
	ID             string    `bson:"_id"`
	FlightNumber   string    `bson:"flightNumber"`
	Airline        string    `bson:"airline"`
	Aircraft       string    `bson:"aircraft"`
	Origin         string    `bson:"origin"`
	Destination    string    `bson:"destination"`
	OriginKey      string    `bson:"originKey"`
	DestinationKey string    `bson:"destinationKey"`
	DepartureTime  time.Time `bson:"departureTime"`
	ArrivalTime    time.Time `bson:"arrivalTime"`
	FareCents      int64     `bson:"fareCents"`
	SeatsTotal     int       `bson:"seatsTotal"`
	SeatsAvailable int       `bson:"seatsAvailable"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func newFlightDoc(f *domain.Flight) flightDoc {
	return flightDoc{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Airline:        f.Airline,
		Aircraft:       f.Aircraft,
		Origin:         f.Origin,
		Destination:    f.Destination,
		OriginKey:      routeKey(f.Origin),
		DestinationKey: routeKey(f.Destination),
		DepartureTime:  f.DepartureTime.UTC(),
		ArrivalTime:    f.ArrivalTime.UTC(),
		FareCents:      f.FareCents,
		SeatsTotal:     f.SeatsTotal,
		SeatsAvailable: f.SeatsAvailable,
		CreatedAt:      f.CreatedAt.UTC(),
		UpdatedAt:      f.UpdatedAt.UTC(),
	}
}

func (d flightDoc) toDomain() domain.Flight {
	return domain.Flight{
		ID:             d.ID,
		FlightNumber:   d.FlightNumber,
		Airline:        d.Airline,
		Aircraft:       d.Aircraft,
		Origin:         d.Origin,
		Destination:    d.Destination,
		DepartureTime:  d.DepartureTime.UTC(),
		ArrivalTime:    d.ArrivalTime.UTC(),
		FareCents:      d.FareCents,
		SeatsTotal:     d.SeatsTotal,
		SeatsAvailable: d.SeatsAvailable,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

// routeKey is the case-folded airport name used for route lookups.
func routeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type passengerDoc struct {
	Name      string `bson:"name"`
	Document  string `bson:"document"`
	SeatLabel string `bson:"seatLabel"`
}

type bookingDoc struct {
	ID              string         `bson:"_id"`
	UserID          string         `bson:"userId"`
	FlightID        string         `bson:"flightId"`
	Passengers      []passengerDoc `bson:"passengers"`
	TotalPriceCents int64          `bson:"totalPriceCents"`
	Status          string         `bson:"status"`
	CreatedAt       time.Time      `bson:"createdAt"`
	UpdatedAt       time.Time      `bson:"updatedAt"`
	CancelledAt     *time.Time     `bson:"cancelledAt,omitempty"`
}

func newBookingDoc(b *domain.Booking) bookingDoc {
	passengers := make([]passengerDoc, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		passengers = append(passengers, passengerDoc{Name: p.Name, Document: p.Document, SeatLabel: p.SeatLabel})
	}
	return bookingDoc{
		ID:              b.ID,
		UserID:          b.UserID,
		FlightID:        b.FlightID,
		Passengers:      passengers,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.UTC(),
		UpdatedAt:       b.UpdatedAt.UTC(),
		CancelledAt:     b.CancelledAt,
	}
}

func (d bookingDoc) toDomain() domain.Booking {
	passengers := make([]domain.Passenger, 0, len(d.Passengers))
	for _, p := range d.Passengers {
		passengers = append(passengers, domain.Passenger{Name: p.Name, Document: p.Document, SeatLabel: p.SeatLabel})
	}
	b := domain.Booking{
		ID:              d.ID,
		UserID:          d.UserID,
		FlightID:        d.FlightID,
		Passengers:      passengers,
		TotalPriceCents: d.TotalPriceCents,
		Status:          domain.BookingStatus(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	if d.CancelledAt != nil {
		at := d.CancelledAt.UTC()
		b.CancelledAt = &at
	}
	return b
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// EnsureMongoIndexes creates the unique email index and the lookup indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := db.Collection(flightsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "originKey", Value: 1}, {Key: "destinationKey", Value: 1}, {Key: "departureTime", Value: 1}},
	}); err != nil {
		return fmt.Errorf("flights index: %w", err)
	}
	if _, err := db.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "flightId", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("bookings index: %w", err)
	}
	return nil
}

// MongoUnitOfWork runs callbacks inside a multi-document transaction.
// It needs a replica set or sharded cluster.
type MongoUnitOfWork struct {
	client   *mongo.Client
	flights  *MongoFlightRepository
	bookings *MongoBookingRepository
}

func NewMongoUnitOfWork(client *mongo.Client, db *mongo.Database) *MongoUnitOfWork {
	return &MongoUnitOfWork{
		client:   client,
		flights:  NewMongoFlightRepository(db).WithTransactions(client),
		bookings: NewMongoBookingRepository(db),
	}
}

func (u *MongoUnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	session, err := u.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	// Repositories reuse the session context, which carries the transaction.
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, Repositories{Flights: u.flights, Bookings: u.bookings})
	})
	return err
}

var _ UnitOfWork = (*MongoUnitOfWork)(nil)
