// Package events defines the booking events emitted by the ledger and the broker-neutral
// interfaces used to publish and consume them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
)

type Type string

const (
	TypeBookingCreated   Type = "booking_created"
	TypeBookingCancelled Type = "booking_cancelled"
)

type BookingEvent struct {
	Type            Type      `json:"type"`
	BookingID       string    `json:"booking_id"`
	FlightID        string    `json:"flight_id"`
	UserID          string    `json:"user_id"`
	Seats           int       `json:"seats"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingEvent(t Type, b domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            t,
		BookingID:       b.ID,
		FlightID:        b.FlightID,
		UserID:          b.UserID,
		Seats:           b.SeatCount(),
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		OccurredAt:      at.UTC(),
	}
}

// Key partitions events by booking so one booking's events stay ordered.
func (e BookingEvent) Key() string {
	return e.BookingID
}

func Decode(data []byte) (BookingEvent, error) {
	var e BookingEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if e.Type == "" || e.BookingID == "" {
		return BookingEvent{}, fmt.Errorf("decode booking event: missing type or booking id")
	}
	return e, nil
}

type Publisher interface {
	PublishBooking(ctx context.Context, event BookingEvent) error
	Close() error
}

type Handler func(ctx context.Context, event BookingEvent) error

// Consumer delivers notification events to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBooking(context.Context, BookingEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
