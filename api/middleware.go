package api

import (
	"fmt"
	"time"

	"github.com/Domenick1991/flightbook/internal/auth"
	"github.com/Domenick1991/flightbook/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Authorizer turns a raw bearer token into the caller's principal.
type Authorizer interface {
	Authorize(token string) (domain.Principal, error)
}

// RequireAuth resolves the principal once per request and stores it in the gin context.
func RequireAuth(authorizer Authorizer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		principal, err := authorizer.Authorize(token)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func RequireAdmin(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			writeError(c, logger, domain.ErrUnauthenticated)
			return
		}
		if !principal.IsAdmin() {
			writeError(c, logger, fmt.Errorf("%w: administrator role required", domain.ErrForbidden))
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequestLogger logs one line per request after the handler chain has run.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if p, ok := principalFrom(c); ok {
			fields = append(fields, zap.String("user_id", p.UserID))
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}
