package repository

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestAdjustSeatsFilter(t *testing.T) {
	after := bson.M{"$add": bson.A{"$seatsAvailable", -2}}
	assert.Equal(t, bson.M{
		"_id": "f1",
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{after, 0}},
			bson.M{"$lte": bson.A{after, "$seatsTotal"}},
		}},
	}, adjustSeatsFilter("f1", -2))
}

func TestHeldSeatsPipeline(t *testing.T) {
	match := bson.M{"flightId": "f1", "status": "confirmed"}
	assert.Equal(t, match, confirmedBookingsFilter("f1"))
	assert.Equal(t, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"seats": bson.M{"$sum": bson.M{"$size": "$passengers"}},
		}}},
	}, heldSeatsPipeline("f1"))
}

func TestMongoFlightRepository_AtomicWithoutTransactions(t *testing.T) {
	repo := &MongoFlightRepository{}
	calls := 0
	err := repo.atomic(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrFlightHasBookings
	})
	assert.ErrorIs(t, err, domain.ErrFlightHasBookings)
	assert.Equal(t, 1, calls)
}

func TestCheckSeatsPatch(t *testing.T) {
	f := &domain.Flight{ID: "f1", SeatsTotal: 10, SeatsAvailable: 8}

	assert.NoError(t, checkSeatsPatch(f, 8, 2))
	assert.NoError(t, checkSeatsPatch(f, 0, 2))
	assert.ErrorIs(t, checkSeatsPatch(f, 9, 2), domain.ErrValidation)
	assert.ErrorIs(t, checkSeatsPatch(f, -1, 0), domain.ErrValidation)
	assert.ErrorIs(t, checkSeatsPatch(f, 11, 0), domain.ErrValidation)
}
