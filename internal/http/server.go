// Package http serves the compression API over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/history"
	"github.com/fyrsmithlabs/textpack/internal/logging"
	"github.com/fyrsmithlabs/textpack/internal/profile"
)

// Server provides HTTP endpoints for textpack.
type Server struct {
	echo     *echo.Echo
	svc      *compression.Service
	profiles *profile.Registry
	history  *history.Store
	logger   *logging.Logger
	config   *Config

	meter    metric.Meter
	registry *prometheus.Registry
	prom     *promMetrics
	checks   map[string]HealthCheck
	now      func() time.Time

	noMetricsEndpoint bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host          string
	Port          int
	BodyLimit     string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxBatchItems int

	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64
	RateBurst int
}

// NewDefaultConfig returns the server defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          8080,
		BodyLimit:     "4M",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		MaxBatchItems: 100,
		RateLimit:     20,
		RateBurst:     40,
	}
}

// HealthCheck reports an error when a dependency is unhealthy.
type HealthCheck func(ctx context.Context) error

// Option configures optional server collaborators.
type Option func(*Server)

// WithProfiles serves and resolves custom domain profiles from r.
func WithProfiles(r *profile.Registry) Option {
	return func(s *Server) { s.profiles = r }
}

// WithHistory records every successful compression in h.
func WithHistory(h *history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithMeter records OpenTelemetry request metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(s *Server) { s.meter = m }
}

// WithPrometheusRegistry exposes reg on /metrics instead of a fresh registry.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithoutMetricsEndpoint leaves /metrics unregistered.
func WithoutMetricsEndpoint() Option {
	return func(s *Server) { s.noMetricsEndpoint = true }
}

// WithHealthCheck adds a named dependency check to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// NewServer creates a new HTTP server.
func NewServer(svc *compression.Service, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("compression service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit cannot be negative, got %v", cfg.RateLimit)
	}

	s := &Server{
		svc:    svc,
		logger: logger.Named("http"),
		config: cfg,
		checks: make(map[string]HealthCheck),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = newPrometheusRegistry()
	}
	s.prom = newPromMetrics(s.registry)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:        uuid.NewString,
		RequestIDHandler: bindRequestID,
	}))
	e.Use(s.accessLog)
	e.Use(NewHTTPMetrics(s.meter, s.logger).MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: 3 * time.Minute,
			},
		)))
	}

	s.echo = e
	s.registerRoutes()

	return s, nil
}

// bindRequestID replaces client-supplied ids that are unsafe to log and
// stores the id on the request context.
func bindRequestID(c echo.Context, id string) {
	if logging.ValidateID(id, "request id") != nil {
		id = uuid.NewString()
		c.Response().Header().Set(echo.HeaderXRequestID, id)
	}
	req := c.Request()
	c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		s.logger.Info(c.Request().Context(), "http request",
			zap.String("method", c.Request().Method),
			zap.String("route", normalizePath(c.Path())),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if !s.noMetricsEndpoint {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/compress", s.handleCompress)
	v1.POST("/decompress", s.handleDecompress)
	v1.POST("/batch", s.handleBatch)
	v1.GET("/profiles", s.handleListProfiles)
	v1.GET("/profiles/:id", s.handleGetProfile)
	v1.GET("/history", s.handleHistory)
}

// handleError renders every error as an ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{Success: false, Error: msg})
	}
	if writeErr != nil {
		s.logger.Warn(c.Request().Context(), "failed to write error response", zap.Error(writeErr))
	}
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
