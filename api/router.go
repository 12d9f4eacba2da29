package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbook/internal/service/booking"
	"github.com/Domenick1991/flightbook/internal/service/flights"
	"github.com/Domenick1991/flightbook/internal/service/identity"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

const swaggerDocURL = "/swagger/flightbook.swagger.json"

type RouterDeps struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Identity identity.IdentityUseCase
	// Health reports whether the backing store is reachable. Optional.
	Health     func(ctx context.Context) error
	SwaggerDir string
	Logger     *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Logger))

	requireAuth := RequireAuth(deps.Identity, deps.Logger)
	requireAdmin := RequireAdmin(deps.Logger)

	NewAuthHandler(deps.Identity, deps.Logger).Register(router.Group("/auth"))
	NewFlightHandler(deps.Flights, deps.Logger).Register(router.Group("/flights"), requireAuth, requireAdmin)
	NewBookingHandler(deps.Bookings, deps.Logger).Register(router.Group("/bookings", requireAuth), requireAdmin)

	router.GET("/healthz", healthz(deps.Health))

	if deps.SwaggerDir != "" {
		router.Static("/swagger", deps.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocURL))))
	}

	return router
}

func healthz(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
