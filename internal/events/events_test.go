package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	b := domain.Booking{
		ID:              "b1",
		UserID:          "u1",
		FlightID:        "f1",
		Passengers:      []domain.Passenger{{Name: "A"}, {Name: "B"}},
		TotalPriceCents: 24000,
		Status:          domain.BookingStatusConfirmed,
	}

	e := NewBookingEvent(TypeBookingCreated, b, at)

	assert.Equal(t, TypeBookingCreated, e.Type)
	assert.Equal(t, 2, e.Seats)
	assert.Equal(t, "confirmed", e.Status)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.Equal(t, "b1", e.Key())
}

func TestDecode(t *testing.T) {
	data, err := json.Marshal(BookingEvent{Type: TypeBookingCancelled, BookingID: "b1", Seats: 1})
	require.NoError(t, err)

	e, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeBookingCancelled, e.Type)

	_, err = Decode([]byte(`{"type":"booking_created"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishBooking(context.Background(), BookingEvent{}))
	assert.NoError(t, p.Close())
}
