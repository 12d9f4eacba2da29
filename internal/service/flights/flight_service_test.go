package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Flight, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Update(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) AdjustSeats(ctx context.Context, id string, delta int) (*domain.Flight, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlight(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) InvalidateFlight(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testFlight() *domain.Flight {
	dep := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Flight{
		ID:             "f1",
		FlightNumber:   "FB100",
		Airline:        "Flightbook Air",
		Origin:         "Lisbon",
		Destination:    "Paris",
		DepartureTime:  dep,
		ArrivalTime:    dep.Add(2 * time.Hour),
		FareCents:      12000,
		SeatsTotal:     100,
		SeatsAvailable: 100,
	}
}

func TestFlightService_ListFlights_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	flights := []domain.Flight{*testFlight()}

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx, domain.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.ListFlights(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_ListFlights_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	flights := []domain.Flight{*testFlight()}
	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.ListFlights(ctx, domain.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestFlightService_ListFlights_FilteredBypassesCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	filter := domain.FlightFilter{Origin: "Lisbon"}
	mockRepo.On("List", ctx, filter).Return([]domain.Flight{}, nil).Once()

	result, err := service.ListFlights(ctx, filter)

	assert.NoError(t, err)
	assert.Empty(t, result)
	mockCache.AssertNotCalled(t, "GetFlights", mock.Anything)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything)
}

func TestFlightService_GetFlight(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flight := testFlight()

	mockCache.On("GetFlight", ctx, "f1").Return(nil, errors.New("redis down")).Once()
	mockRepo.On("GetByID", ctx, "f1").Return(flight, nil).Once()
	mockCache.On("SetFlight", ctx, flight).Return(nil).Once()

	result, err := service.GetFlight(ctx, "f1")

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_GetFlight_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	result, err := service.GetFlight(ctx, "missing")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlightService_CreateFlight(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	f := testFlight()

	spec := domain.FlightSpec{
		FlightNumber:  "FB100",
		Origin:        "Lisbon",
		Destination:   "Paris",
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		FareCents:     12000,
		Capacity:      100,
	}

	mockRepo.On("Create", ctx, mock.MatchedBy(func(fl *domain.Flight) bool {
		return fl.ID != "" && fl.SeatsTotal == 100 && fl.SeatsAvailable == 100
	})).Return(nil).Once()
	mockCache.On("InvalidateFlight", ctx, mock.Anything).Return(nil).Once()

	created, err := service.CreateFlight(ctx, spec)

	require.NoError(t, err)
	assert.Equal(t, 100, created.SeatsAvailable)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_CreateFlight_Invalid(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	f := testFlight()

	testCases := []struct {
		name string
		spec domain.FlightSpec
	}{
		{name: "zero capacity", spec: domain.FlightSpec{FlightNumber: "X", Origin: "A", Destination: "B", DepartureTime: f.DepartureTime, ArrivalTime: f.ArrivalTime, Capacity: 0}},
		{name: "negative fare", spec: domain.FlightSpec{FlightNumber: "X", Origin: "A", Destination: "B", DepartureTime: f.DepartureTime, ArrivalTime: f.ArrivalTime, Capacity: 10, FareCents: -1}},
		{name: "same route", spec: domain.FlightSpec{FlightNumber: "X", Origin: "Oslo", Destination: "oslo", DepartureTime: f.DepartureTime, ArrivalTime: f.ArrivalTime, Capacity: 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateFlight(context.Background(), tc.spec)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestFlightService_UpdateFlight(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	current := testFlight()

	seats := 90
	patch := domain.FlightPatch{SeatsAvailable: &seats}
	updated := *current
	updated.SeatsAvailable = seats

	mockRepo.On("GetByID", ctx, "f1").Return(current, nil).Once()
	mockRepo.On("Update", ctx, "f1", patch).Return(&updated, nil).Once()
	mockCache.On("InvalidateFlight", ctx, "f1").Return(nil).Once()

	result, err := service.UpdateFlight(ctx, "f1", patch)

	require.NoError(t, err)
	assert.Equal(t, 90, result.SeatsAvailable)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_UpdateFlight_Rejects(t *testing.T) {
	ctx := context.Background()
	tooMany := 101
	newTotal := 120
	sameCity := "paris"

	testCases := []struct {
		name  string
		patch domain.FlightPatch
	}{
		{name: "seats above capacity", patch: domain.FlightPatch{SeatsAvailable: &tooMany}},
		{name: "capacity change", patch: domain.FlightPatch{SeatsTotal: &newTotal}},
		{name: "origin equals destination", patch: domain.FlightPatch{Origin: &sameCity}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &MockFlightRepository{}
			service := NewFlightService(mockRepo, nil, zap.NewNop())
			mockRepo.On("GetByID", ctx, "f1").Return(testFlight(), nil).Once()

			_, err := service.UpdateFlight(ctx, "f1", tc.patch)

			assert.ErrorIs(t, err, domain.ErrValidation)
			mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("empty patch", func(t *testing.T) {
		service := NewFlightService(&MockFlightRepository{}, nil, zap.NewNop())
		_, err := service.UpdateFlight(ctx, "f1", domain.FlightPatch{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestFlightService_DeleteFlight(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Delete", ctx, "f1").Return(nil).Once()
	mockCache.On("InvalidateFlight", ctx, "f1").Return(nil).Once()
	mockRepo.On("Delete", ctx, "f2").Return(domain.ErrFlightHasBookings).Once()

	assert.NoError(t, service.DeleteFlight(ctx, "f1"))
	assert.ErrorIs(t, service.DeleteFlight(ctx, "f2"), domain.ErrFlightHasBookings)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_AdjustSeats(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	after := testFlight()
	after.SeatsAvailable = 98

	mockRepo.On("AdjustSeats", ctx, "f1", -2).Return(after, nil).Once()
	mockCache.On("InvalidateFlight", ctx, "f1").Return(errors.New("redis down")).Once()
	mockRepo.On("AdjustSeats", ctx, "f1", -200).Return(nil, domain.ErrInsufficientSeats).Once()

	result, err := service.AdjustSeats(ctx, "f1", -2)
	require.NoError(t, err)
	assert.Equal(t, 98, result.SeatsAvailable)

	_, err = service.AdjustSeats(ctx, "f1", -200)
	assert.ErrorIs(t, err, domain.ErrInsufficientSeats)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}
