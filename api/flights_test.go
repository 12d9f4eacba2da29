package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFlight() *domain.Flight {
	dep := time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)
	return &domain.Flight{
		ID: "f1", FlightNumber: "SU100", Airline: "Aeroflot", Aircraft: "A320",
		Origin: "Moscow", Destination: "Kazan",
		DepartureTime: dep, ArrivalTime: dep.Add(90 * time.Minute),
		FareCents: 5000, SeatsTotal: 100, SeatsAvailable: 98,
	}
}

func newTestContext(method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestFlightHandler_list(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, zap.NewNop())

	c, w := newTestContext("GET", "/flights?origin=Moscow&date=2026-11-02&limit=10", nil)

	day := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	filter := domain.FlightFilter{Origin: "Moscow", DepartFrom: day, DepartTo: day.Add(24 * time.Hour), Limit: 10}
	mockService.On("ListFlights", c.Request.Context(), filter).Return([]domain.Flight{*testFlight()}, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []flightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "SU100", resp[0].FlightNumber)
	assert.Equal(t, 90, resp[0].DurationMinutes)
	assert.Equal(t, "2026-11-02T08:00:00Z", resp[0].DepartureTime)

	mockService.AssertExpectations(t)
}

func TestFlightHandler_list_BadParams(t *testing.T) {
	for _, target := range []string{"/flights?date=tomorrow", "/flights?limit=-1", "/flights?from=yesterday"} {
		mockService := &MockFlightUseCase{}
		handler := NewFlightHandler(mockService, zap.NewNop())
		c, w := newTestContext("GET", target, nil)

		handler.list(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		mockService.AssertNotCalled(t, "ListFlights", mock.Anything, mock.Anything)
	}
}

func TestFlightHandler_get(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, zap.NewNop())

	c, w := newTestContext("GET", "/flights/f1", nil)
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	mockService.On("GetFlight", c.Request.Context(), "f1").Return(testFlight(), nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_get_NotFound(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, zap.NewNop())

	c, w := newTestContext("GET", "/flights/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	mockService.On("GetFlight", c.Request.Context(), "missing").Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
}

func TestFlightHandler_create(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, zap.NewNop())

	body := map[string]any{
		"flight_number":  "SU100",
		"airline":        "Aeroflot",
		"origin":         "Moscow",
		"destination":    "Kazan",
		"departure_time": "2026-11-02T08:00:00Z",
		"arrival_time":   "2026-11-02T09:30:00Z",
		"fare_cents":     5000,
		"seats_total":    100,
	}
	c, w := newTestContext("POST", "/flights", body)

	mockService.On("CreateFlight", c.Request.Context(), mock.MatchedBy(func(s domain.FlightSpec) bool {
		return s.FlightNumber == "SU100" && s.Capacity == 100 && s.FareCents == 5000 &&
			s.ArrivalTime.Sub(s.DepartureTime) == 90*time.Minute
	})).Return(testFlight(), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_update(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, zap.NewNop())

	c, w := newTestContext("PUT", "/flights/f1", map[string]any{"fare_cents": 7000})
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	updated := testFlight()
	updated.FareCents = 7000
	mockService.On("UpdateFlight", c.Request.Context(), "f1", mock.MatchedBy(func(p domain.FlightPatch) bool {
		return p.FareCents != nil && *p.FareCents == 7000 && p.Origin == nil
	})).Return(updated, nil)

	handler.update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_delete(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "has bookings", err: domain.ErrFlightHasBookings, wantStatus: http.StatusConflict},
		{name: "storage failure", err: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockFlightUseCase{}
			handler := NewFlightHandler(mockService, zap.NewNop())

			c, w := newTestContext("DELETE", "/flights/f1", nil)
			c.Params = gin.Params{{Key: "id", Value: "f1"}}
			mockService.On("DeleteFlight", c.Request.Context(), "f1").Return(tc.err)

			handler.delete(c)
			c.Writer.WriteHeaderNow()

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}
