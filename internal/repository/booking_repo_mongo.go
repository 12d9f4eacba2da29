package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoBookingRepository struct {
	coll *mongo.Collection
}

func NewMongoBookingRepository(db *mongo.Database) *MongoBookingRepository {
	return &MongoBookingRepository{coll: db.Collection(bookingsCollection)}
}

func (r *MongoBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if _, err := r.coll.InsertOne(ctx, newBookingDoc(b)); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var doc bookingDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	b := doc.toDomain()
	return &b, nil
}

func (r *MongoBookingRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *MongoBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoBookingRepository) find(ctx context.Context, query bson.M) ([]domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	bookings := make([]domain.Booking, 0, len(docs))
	for _, d := range docs {
		bookings = append(bookings, d.toDomain())
	}
	return bookings, nil
}

func (r *MongoBookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*domain.Booking, error) {
	at = at.UTC()
	var doc bookingDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(domain.BookingStatusConfirmed)},
		bson.M{"$set": bson.M{"status": string(domain.BookingStatusCancelled), "cancelledAt": at, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		b := doc.toDomain()
		return &b, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, statusError(current)
}

func (r *MongoBookingRepository) RestoreConfirmed(ctx context.Context, id string) (*domain.Booking, error) {
	var doc bookingDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(domain.BookingStatusCancelled)},
		bson.M{
			"$set":   bson.M{"status": string(domain.BookingStatusConfirmed), "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"cancelledAt": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("cancelled booking", id)
		}
		return nil, fmt.Errorf("restore booking: %w", err)
	}
	b := doc.toDomain()
	return &b, nil
}

var _ BookingRepository = (*MongoBookingRepository)(nil)
