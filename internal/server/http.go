// Package server exposes the orchestrator over HTTP. It is a thin consumer
// of the core.HealthService contract and never touches the cache, quota
// tracker or request queue directly.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repopulse/internal/core"
)

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options.
type Config struct {
	MetricsEnabled  bool   // Whether to expose the Prometheus endpoint
	MetricsEndpoint string // HTTP path for metrics (default: /metrics)
	Logger          *slog.Logger
}

// New creates the HTTP server around a health service.
func New(svc core.HealthService, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	log := slog.Default()
	if cfg != nil && cfg.Logger != nil {
		log = cfg.Logger
	}

	handler := NewHandler(svc)

	// Global middleware stack (order matters)
	e.Use(requestIDMiddleware())
	e.Use(requestLogMiddleware(log))
	e.Use(middleware.Recover())

	// Public routes
	e.GET("/healthz", handler.Healthz)
	if cfg != nil && cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// API routes
	e.GET("/api/status", handler.Status)
	e.GET("/api/repos/:owner/:repo", handler.GetProject)
	e.GET("/api/repos/:owner/:repo/metrics", handler.GetMetrics)
	e.GET("/api/repos/:owner/:repo/health", handler.GetHealth)
	e.POST("/api/repos/:owner/:repo/refresh", handler.Refresh)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, allowing Server to be used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// requestIDMiddleware attaches a request ID, honoring one supplied by the
// caller.
func requestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// requestLogMiddleware logs one structured line per request.
func requestLogMiddleware(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if id, ok := c.Get("request_id").(string); ok {
				attrs = append(attrs, "request_id", id)
			}
			if v.Status >= http.StatusInternalServerError {
				log.Error("request", attrs...)
			} else {
				log.Info("request", attrs...)
			}
			return nil
		},
	})
}
