package email

import (
	"context"

	"github.com/Domenick1991/flightbook/internal/events"
	"go.uber.org/zap"
)

// Sender delivers booking notifications. It writes them to the log.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event events.BookingEvent) error {
	s.logger.Info("send booking notification",
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("booking_id", event.BookingID),
		zap.String("flight_id", event.FlightID),
		zap.Int("seats", event.Seats),
		zap.String("subject", Subject(event)),
	)
	return nil
}

func Subject(event events.BookingEvent) string {
	switch event.Type {
	case events.TypeBookingCreated:
		return "Your booking is confirmed"
	case events.TypeBookingCancelled:
		return "Your booking was cancelled"
	default:
		return "Booking update"
	}
}
