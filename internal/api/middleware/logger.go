package middleware

import (
	"time"

	"cdr.dev/slog/v3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Logger returns a middleware that logs each HTTP request through log.
// Server errors are logged at error level, client errors at warn.
func Logger(log slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []slog.Field{
				slog.F("id", v.RequestID),
				slog.F("remote_ip", v.RemoteIP),
				slog.F("method", v.Method),
				slog.F("uri", v.URI),
				slog.F("status", v.Status),
				slog.F("latency", v.Latency.Round(time.Microsecond)),
			}
			if v.Error != nil {
				fields = append(fields, slog.Error(v.Error))
			}

			ctx := c.Request().Context()
			switch {
			case v.Status >= 500:
				log.Error(ctx, "request", fields...)
			case v.Status >= 400:
				log.Warn(ctx, "request", fields...)
			default:
				log.Info(ctx, "request", fields...)
			}
			return nil
		},
	})
}
