package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service booking.BookingUseCase
	logger  *zap.Logger
}

type passengerDTO struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Seat     string `json:"seat"`
}

// passengerInput also takes the passport and seatNumber names of the documented body.
type passengerInput struct {
	passengerDTO
	Passport   string `json:"passport"`
	SeatNumber string `json:"seatNumber"`
}

// createBookingRequest accepts the documented body {flight, passengers, totalPrice} as well as
// flight_id and total_price_cents. totalPrice is in cents, like every amount of the API.
type createBookingRequest struct {
	Flight     string           `json:"flight"`
	FlightID   string           `json:"flight_id"`
	Passengers []passengerInput `json:"passengers"`
	// The price the client displayed; the booking fails with 409 if the fare moved.
	TotalPrice      *int64 `json:"totalPrice"`
	TotalPriceCents *int64 `json:"total_price_cents"`
}

func (r createBookingRequest) toInput(userID string) (booking.CreateBookingInput, error) {
	flightID, err := coalesce("flight", r.Flight, r.FlightID)
	if err != nil {
		return booking.CreateBookingInput{}, err
	}

	total := r.TotalPriceCents
	if r.TotalPrice != nil {
		if total != nil && *total != *r.TotalPrice {
			return booking.CreateBookingInput{}, fmt.Errorf("totalPrice: conflicting values %d and %d", *r.TotalPrice, *total)
		}
		total = r.TotalPrice
	}

	passengers := make([]domain.Passenger, 0, len(r.Passengers))
	for i, p := range r.Passengers {
		document, err := coalesce(fmt.Sprintf("passengers[%d].document", i), p.Document, p.Passport)
		if err != nil {
			return booking.CreateBookingInput{}, err
		}
		seat, err := coalesce(fmt.Sprintf("passengers[%d].seat", i), p.Seat, p.SeatNumber)
		if err != nil {
			return booking.CreateBookingInput{}, err
		}
		passengers = append(passengers, domain.Passenger{Name: p.Name, Document: document, SeatLabel: seat})
	}

	return booking.CreateBookingInput{
		UserID:             userID,
		FlightID:           flightID,
		Passengers:         passengers,
		ExpectedTotalCents: total,
	}, nil
}

// coalesce returns the single non-empty value among a field and its aliases.
func coalesce(field string, values ...string) (string, error) {
	var out string
	for _, v := range values {
		if v == "" {
			continue
		}
		if out != "" && out != v {
			return "", fmt.Errorf("%s: conflicting values %q and %q", field, out, v)
		}
		out = v
	}
	return out, nil
}

type bookingResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	FlightID        string          `json:"flight_id"`
	Passengers      []passengerDTO  `json:"passengers"`
	TotalPriceCents int64           `json:"total_price_cents"`
	Status          string          `json:"status"`
	CreatedAt       string          `json:"created_at"`
	CancelledAt     *string         `json:"cancelled_at,omitempty"`
	Flight          *flightResponse `json:"flight,omitempty"`
}

func NewBookingHandler(service booking.BookingUseCase, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// Register mounts the ledger on a group that already requires authentication.
func (h *BookingHandler) Register(router *gin.RouterGroup, adminOnly ...gin.HandlerFunc) {
	router.GET("", append(adminOnly, h.listAll)...)
	router.GET("/mine", h.mine)
	router.GET("/:id", h.get)
	router.POST("", h.create)
	router.PUT("/:id/cancel", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	input, err := req.toInput(principal.UserID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(domain.BookingDetails{Booking: *b}))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(domain.BookingDetails{Booking: *b}))
}

func (h *BookingHandler) get(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	details, err := h.service.GetBooking(c.Request.Context(), c.Param("id"), principal)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(*details))
}

func (h *BookingHandler) mine(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	list, err := h.service.ListBookingsForUser(c.Request.Context(), principal.UserID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func (h *BookingHandler) listAll(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	list, err := h.service.ListAllBookings(c.Request.Context(), principal)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func (h *BookingHandler) principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := principalFrom(c)
	if !ok {
		writeError(c, h.logger, domain.ErrUnauthenticated)
	}
	return p, ok
}

func toBookingResponses(list []domain.BookingDetails) []bookingResponse {
	resp := make([]bookingResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, toBookingResponse(d))
	}
	return resp
}

func toBookingResponse(d domain.BookingDetails) bookingResponse {
	resp := bookingResponse{
		ID:              d.ID,
		UserID:          d.UserID,
		FlightID:        d.FlightID,
		Passengers:      make([]passengerDTO, 0, len(d.Passengers)),
		TotalPriceCents: d.TotalPriceCents,
		Status:          string(d.Status),
		CreatedAt:       d.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, p := range d.Passengers {
		resp.Passengers = append(resp.Passengers, passengerDTO{Name: p.Name, Document: p.Document, Seat: p.SeatLabel})
	}
	if d.CancelledAt != nil {
		at := d.CancelledAt.UTC().Format(time.RFC3339)
		resp.CancelledAt = &at
	}
	if d.Flight != nil {
		f := toFlightResponse(*d.Flight)
		resp.Flight = &f
	}
	return resp
}
