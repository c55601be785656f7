// Package api serves run history, cluster records and tier recommendations
// over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cdr.dev/slog/v3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	apimiddleware "github.com/tsanders-rh/lactl/internal/api/middleware"
	"github.com/tsanders-rh/lactl/internal/policy"
	"github.com/tsanders-rh/lactl/internal/profile"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	// AllowedOrigins enables CORS for browser clients when non-empty
	AllowedOrigins []string
	MaxBodySize    string
	// RateLimitRequests per RateLimitDuration per client IP; zero disables
	// limiting
	RateLimitRequests int
	RateLimitDuration time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:              8080,
		ShutdownTimeout:   10 * time.Second,
		RequestTimeout:    30 * time.Second,
		MaxBodySize:       "64K",
		RateLimitRequests: 120,
		RateLimitDuration: time.Minute,
	}
}

// unlimitedPaths are polled by orchestrators and scrapers and never throttled
var unlimitedPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Server represents the HTTP API server
type Server struct {
	echo     *echo.Echo
	config   *ServerConfig
	history  History
	registry *profile.Registry
	policy   *policy.Engine
	log      slog.Logger
}

// NewServer creates a new API server
func NewServer(
	config *ServerConfig,
	history History,
	registry *profile.Registry,
	policyEngine *policy.Engine,
	log slog.Logger,
) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Requests are logged through slog instead
	e.Logger.SetOutput(io.Discard)

	e.Validator = NewValidator()

	s := &Server{
		echo:     e,
		config:   config,
		history:  history,
		registry: registry,
		policy:   policyEngine,
		log:      log.Named("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware stack
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimiddleware.Logger(s.log))

	if len(s.config.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  s.config.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentLength},
		}))
	}

	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))

	if s.config.RateLimitRequests > 0 && s.config.RateLimitDuration > 0 {
		limit := rate.Limit(float64(s.config.RateLimitRequests) / s.config.RateLimitDuration.Seconds())
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return unlimitedPaths[c.Path()]
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      limit,
				Burst:     s.config.RateLimitRequests,
				ExpiresIn: s.config.RateLimitDuration,
			}),
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return respondError(c, http.StatusTooManyRequests, ErrorResponse{Error: "rate_limited", Message: "Too many requests"})
			},
		}))
	}

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: s.config.RequestTimeout,
	}))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readyCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	tierHandler := NewTierHandler(s.registry)
	v1.GET("/tiers", tierHandler.List)
	v1.POST("/recommendations", tierHandler.Recommend)

	profileHandler := NewProfileHandler(s.registry)
	profilesGroup := v1.Group("/profiles")
	profilesGroup.GET("", profileHandler.List)
	profilesGroup.GET("/:name", profileHandler.Get)

	clusterHandler := NewClusterHandler(s.history, s.policy)
	clustersGroup := v1.Group("/clusters")
	clustersGroup.GET("", clusterHandler.List)
	clustersGroup.GET("/*", clusterHandler.Get)
	clustersGroup.POST("/plan", clusterHandler.Plan)

	runHandler := NewRunHandler(s.history)
	runsGroup := v1.Group("/runs")
	runsGroup.GET("", runHandler.List)
	runsGroup.GET("/:id", runHandler.Get, requireRunID)
	runsGroup.GET("/:id/links", runHandler.Links, requireRunID)
	runsGroup.GET("/:id/usage", runHandler.Usage, requireRunID)
	runsGroup.GET("/:id/audit", runHandler.Audit, requireRunID)
}

// healthCheck reports liveness only; it never touches the database
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// readyCheck reports whether run history is reachable
func (s *Server) readyCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.history.Ping(ctx); err != nil {
		s.log.Warn(ctx, "readiness check failed", slog.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
	}

	resp := map[string]any{"status": "ready"}
	if s.registry != nil {
		resp["profiles"] = s.registry.CountEnabled()
	}
	return c.JSON(http.StatusOK, resp)
}

// Start serves until Shutdown, which is reported as a nil error
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Info(context.Background(), "starting API server", slog.F("addr", addr))
	if err := s.echo.Start(addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
