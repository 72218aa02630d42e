package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestID tags every request with an id, echoes it back in the response
// header and scopes the logger carried in the request context.
func RequestID(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set("X-Request-ID", requestID)

			loggerWithID := logger.With().Str("request_id", requestID).Logger()
			ctx := loggerWithID.WithContext(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))

			loggerWithID.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Str("remote_addr", c.Request().RemoteAddr).
				Msg("request started")

			err := next(c)

			duration := time.Since(start)
			loggerWithID.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Int64("duration_ms", duration.Milliseconds()).
				Dur("duration", duration).
				Msg("request completed")

			return err
		}
	}
}
