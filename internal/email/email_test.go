package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbook/internal/events"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	err := sender.Send(context.Background(), events.BookingEvent{Type: events.TypeBookingCreated, BookingID: "b1", UserID: "u1"})
	assert.NoError(t, err)

	entries := logs.FilterMessage("send booking notification").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "b1", entries[0].ContextMap()["booking_id"])
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Your booking is confirmed", Subject(events.BookingEvent{Type: events.TypeBookingCreated}))
	assert.Equal(t, "Your booking was cancelled", Subject(events.BookingEvent{Type: events.TypeBookingCancelled}))
	assert.Equal(t, "Booking update", Subject(events.BookingEvent{Type: "other"}))
}
