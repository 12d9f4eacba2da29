package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorKind struct {
	err    error
	status int
	kind   string
}

// Order matters: SeatsUnavailable wraps the storage guard errors.
var errorKinds = []errorKind{
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrSeatsUnavailable, http.StatusConflict, "seats_unavailable"},
	{domain.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
	{domain.ErrEmailInUse, http.StatusConflict, "email_in_use"},
	{domain.ErrFlightHasBookings, http.StatusConflict, "flight_has_bookings"},
	{domain.ErrFareChanged, http.StatusConflict, "fare_changed"},
}

func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.kind
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err and aborts the chain. Internal errors are logged and never echoed.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, kind := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: kind, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "validation_error", Message: message})
}
