package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoFlightRepository struct {
	coll     *mongo.Collection
	bookings *mongo.Collection
	client   *mongo.Client
}

func NewMongoFlightRepository(db *mongo.Database) *MongoFlightRepository {
	return &MongoFlightRepository{
		coll:     db.Collection(flightsCollection),
		bookings: db.Collection(bookingsCollection),
	}
}

// WithTransactions makes Update and Delete read the bookings and write the flight in one
// multi-document transaction. Without it the two steps are only ordered, not isolated.
func (r *MongoFlightRepository) WithTransactions(client *mongo.Client) *MongoFlightRepository {
	r.client = client
	return r
}

// atomic runs fn in a transaction unless ctx already carries one.
func (r *MongoFlightRepository) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.client == nil || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (r *MongoFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	if _, err := r.coll.InsertOne(ctx, newFlightDoc(f)); err != nil {
		return fmt.Errorf("insert flight: %w", err)
	}
	return nil
}

func (r *MongoFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	var doc flightDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	f := doc.toDomain()
	return &f, nil
}

func (r *MongoFlightRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Flight, error) {
	if len(ids) == 0 {
		return []domain.Flight{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *MongoFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	filter = filter.Normalize()

	query := bson.M{}
	if filter.Origin != "" {
		query["originKey"] = routeKey(filter.Origin)
	}
	if filter.Destination != "" {
		query["destinationKey"] = routeKey(filter.Destination)
	}
	departure := bson.M{}
	if !filter.DepartFrom.IsZero() {
		departure["$gte"] = filter.DepartFrom.UTC()
	}
	if !filter.DepartTo.IsZero() {
		departure["$lt"] = filter.DepartTo.UTC()
	}
	if len(departure) > 0 {
		query["departureTime"] = departure
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "departureTime", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit))
	return r.find(ctx, query, opts)
}

func (r *MongoFlightRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]domain.Flight, error) {
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find flights: %w", err)
	}
	var docs []flightDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode flights: %w", err)
	}
	flights := make([]domain.Flight, 0, len(docs))
	for _, d := range docs {
		flights = append(flights, d.toDomain())
	}
	return flights, nil
}

func (r *MongoFlightRepository) Update(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.FlightNumber != nil {
		set["flightNumber"] = strings.TrimSpace(*patch.FlightNumber)
	}
	if patch.Airline != nil {
		set["airline"] = strings.TrimSpace(*patch.Airline)
	}
	if patch.Aircraft != nil {
		set["aircraft"] = strings.TrimSpace(*patch.Aircraft)
	}
	if patch.Origin != nil {
		set["origin"] = strings.TrimSpace(*patch.Origin)
		set["originKey"] = routeKey(*patch.Origin)
	}
	if patch.Destination != nil {
		set["destination"] = strings.TrimSpace(*patch.Destination)
		set["destinationKey"] = routeKey(*patch.Destination)
	}
	if patch.DepartureTime != nil {
		set["departureTime"] = patch.DepartureTime.UTC()
	}
	if patch.ArrivalTime != nil {
		set["arrivalTime"] = patch.ArrivalTime.UTC()
	}
	if patch.FareCents != nil {
		set["fareCents"] = *patch.FareCents
	}

	if patch.SeatsAvailable == nil {
		return r.update(ctx, id, set)
	}

	seats := *patch.SeatsAvailable
	set["seatsAvailable"] = seats
	var updated *domain.Flight
	err := r.atomic(ctx, func(ctx context.Context) error {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		held, err := r.heldSeats(ctx, id)
		if err != nil {
			return err
		}
		if err := checkSeatsPatch(current, seats, held); err != nil {
			return err
		}
		updated, err = r.update(ctx, id, set)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MongoFlightRepository) update(ctx context.Context, id string, set bson.M) (*domain.Flight, error) {
	var doc flightDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound("flight", id)
		}
		return nil, fmt.Errorf("update flight: %w", err)
	}
	f := doc.toDomain()
	return &f, nil
}

func (r *MongoFlightRepository) heldSeats(ctx context.Context, flightID string) (int, error) {
	cur, err := r.bookings.Aggregate(ctx, heldSeatsPipeline(flightID))
	if err != nil {
		return 0, fmt.Errorf("held seats: %w", err)
	}
	var out []struct {
		Seats int `bson:"seats"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("decode held seats: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Seats, nil
}

func confirmedBookingsFilter(flightID string) bson.M {
	return bson.M{"flightId": flightID, "status": string(domain.BookingStatusConfirmed)}
}

// heldSeatsPipeline sums the passengers of the flight's confirmed bookings.
func heldSeatsPipeline(flightID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: confirmedBookingsFilter(flightID)}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"seats": bson.M{"$sum": bson.M{"$size": "$passengers"}},
		}}},
	}
}

func (r *MongoFlightRepository) Delete(ctx context.Context, id string) error {
	return r.atomic(ctx, func(ctx context.Context) error {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		booked, err := r.bookings.CountDocuments(ctx, confirmedBookingsFilter(id), options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if booked > 0 {
			return hasBookings(id)
		}
		if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return fmt.Errorf("delete flight: %w", err)
		}
		return nil
	})
}

// adjustSeatsFilter matches the flight only if seats_available + delta stays within [0, seats_total].
func adjustSeatsFilter(id string, delta int) bson.M {
	after := bson.M{"$add": bson.A{"$seatsAvailable", delta}}
	return bson.M{
		"_id": id,
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{after, 0}},
			bson.M{"$lte": bson.A{after, "$seatsTotal"}},
		}},
	}
}

func (r *MongoFlightRepository) AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error) {
	if delta == 0 {
		return r.GetByID(ctx, id)
	}

	query := adjustSeatsFilter(id, delta)
	update := bson.M{
		"$inc": bson.M{"seatsAvailable": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var doc flightDoc
	err := r.coll.FindOneAndUpdate(ctx, query, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		f := doc.toDomain()
		return &f, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("adjust seats: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, seatGuardError(current, delta)
}

var _ FlightRepository = (*MongoFlightRepository)(nil)
