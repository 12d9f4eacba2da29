package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightCreator struct {
	mock.Mock
}

func (m *MockFlightCreator) CreateFlight(ctx context.Context, spec domain.FlightSpec) (*domain.Flight, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func TestGenerator_Flight(t *testing.T) {
	g := newGenerator(rand.New(rand.NewPCG(1, 2)))
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	for i := 0; i < 500; i++ {
		spec := g.flight(now)

		require.NoError(t, spec.Validate())
		assert.NotEqual(t, spec.Origin, spec.Destination)
		assert.GreaterOrEqual(t, spec.Capacity, 100)
		assert.LessOrEqual(t, spec.Capacity, 300)
		assert.GreaterOrEqual(t, spec.FareCents, int64(5000))
		assert.LessOrEqual(t, spec.FareCents, int64(100099))

		ahead := spec.DepartureTime.Sub(now)
		assert.Greater(t, ahead, time.Duration(0))
		assert.Less(t, ahead, 61*24*time.Hour)

		duration := spec.ArrivalTime.Sub(spec.DepartureTime)
		assert.GreaterOrEqual(t, duration, 2*time.Hour)
		assert.LessOrEqual(t, duration, 12*time.Hour+45*time.Minute)
		assert.Regexp(t, `^[A-Z]{1,3}-\d{4}$`, spec.FlightNumber)
	}
}

func TestAirlineCode(t *testing.T) {
	assert.Equal(t, "BA", airlineCode("British Airways"))
	assert.Equal(t, "E", airlineCode("Emirates"))
	assert.Equal(t, "DAL", airlineCode("Delta Air Lines"))
}

func TestSeedFlights(t *testing.T) {
	catalog := &MockFlightCreator{}
	ctx := context.Background()
	g := newGenerator(rand.New(rand.NewPCG(3, 4)))

	catalog.On("CreateFlight", ctx, mock.Anything).Return(&domain.Flight{}, nil).Times(2)
	catalog.On("CreateFlight", ctx, mock.Anything).Return(nil, errors.New("db down")).Once()

	created, err := seedFlights(ctx, catalog, g, 5, time.Now())

	assert.Equal(t, 2, created)
	assert.ErrorContains(t, err, "flight 3")
	catalog.AssertExpectations(t)
}
