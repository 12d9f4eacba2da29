package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/Domenick1991/flightbook/internal/service/flights"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type FlightHandler struct {
	service flights.FlightUseCase
	logger  *zap.Logger
}

type createFlightRequest struct {
	FlightNumber  string    `json:"flight_number"`
	Airline       string    `json:"airline"`
	Aircraft      string    `json:"aircraft"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	FareCents     int64     `json:"fare_cents"`
	SeatsTotal    int       `json:"seats_total"`
}

type updateFlightRequest struct {
	FlightNumber   *string    `json:"flight_number"`
	Airline        *string    `json:"airline"`
	Aircraft       *string    `json:"aircraft"`
	Origin         *string    `json:"origin"`
	Destination    *string    `json:"destination"`
	DepartureTime  *time.Time `json:"departure_time"`
	ArrivalTime    *time.Time `json:"arrival_time"`
	FareCents      *int64     `json:"fare_cents"`
	SeatsTotal     *int       `json:"seats_total"`
	SeatsAvailable *int       `json:"seats_available"`
}

type flightResponse struct {
	ID              string `json:"id"`
	FlightNumber    string `json:"flight_number"`
	Airline         string `json:"airline"`
	Aircraft        string `json:"aircraft"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DepartureTime   string `json:"departure_time"`
	ArrivalTime     string `json:"arrival_time"`
	DurationMinutes int    `json:"duration_minutes"`
	FareCents       int64  `json:"fare_cents"`
	SeatsTotal      int    `json:"seats_total"`
	SeatsAvailable  int    `json:"seats_available"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func NewFlightHandler(service flights.FlightUseCase, logger *zap.Logger) *FlightHandler {
	return &FlightHandler{service: service, logger: logger}
}

// Register mounts the catalog. Reads are public; adminOnly guards every write.
func (h *FlightHandler) Register(router *gin.RouterGroup, adminOnly ...gin.HandlerFunc) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("", append(adminOnly, h.create)...)
	router.PUT("/:id", append(adminOnly, h.update)...)
	router.DELETE("/:id", append(adminOnly, h.delete)...)
}

func (h *FlightHandler) list(c *gin.Context) {
	filter, err := parseFlightFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	list, err := h.service.ListFlights(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := make([]flightResponse, 0, len(list))
	for _, f := range list {
		resp = append(resp, toFlightResponse(f))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) get(c *gin.Context) {
	flight, err := h.service.GetFlight(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.CreateFlight(c.Request.Context(), domain.FlightSpec{
		FlightNumber:  req.FlightNumber,
		Airline:       req.Airline,
		Aircraft:      req.Aircraft,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		FareCents:     req.FareCents,
		Capacity:      req.SeatsTotal,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(*flight))
}

func (h *FlightHandler) update(c *gin.Context) {
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	flight, err := h.service.UpdateFlight(c.Request.Context(), c.Param("id"), domain.FlightPatch{
		FlightNumber:   req.FlightNumber,
		Airline:        req.Airline,
		Aircraft:       req.Aircraft,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureTime:  req.DepartureTime,
		ArrivalTime:    req.ArrivalTime,
		FareCents:      req.FareCents,
		SeatsTotal:     req.SeatsTotal,
		SeatsAvailable: req.SeatsAvailable,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	if err := h.service.DeleteFlight(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseFlightFilter reads origin, destination, date, from, to, limit and offset.
// date selects one UTC day and overrides from/to.
func parseFlightFilter(c *gin.Context) (domain.FlightFilter, error) {
	filter := domain.FlightFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}

	var err error
	if filter.DepartFrom, err = parseTimeParam(c.Query("from")); err != nil {
		return filter, err
	}
	if filter.DepartTo, err = parseTimeParam(c.Query("to")); err != nil {
		return filter, err
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, errInvalidParam("date", raw)
		}
		filter.DepartFrom = day
		filter.DepartTo = day.Add(24 * time.Hour)
	}
	if filter.Limit, err = parseIntParam(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseIntParam(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

// parseTimeParam accepts RFC 3339 or a bare date.
func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidParam("time", raw)
}

func parseIntParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errInvalidParam(name, raw)
	}
	return n, nil
}

func errInvalidParam(name, value string) error {
	return fmt.Errorf("invalid %s parameter %q", name, value)
}

func toFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{
		ID:              f.ID,
		FlightNumber:    f.FlightNumber,
		Airline:         f.Airline,
		Aircraft:        f.Aircraft,
		Origin:          f.Origin,
		Destination:     f.Destination,
		DepartureTime:   f.DepartureTime.UTC().Format(time.RFC3339),
		ArrivalTime:     f.ArrivalTime.UTC().Format(time.RFC3339),
		DurationMinutes: int(f.Duration() / time.Minute),
		FareCents:       f.FareCents,
		SeatsTotal:      f.SeatsTotal,
		SeatsAvailable:  f.SeatsAvailable,
		CreatedAt:       f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
