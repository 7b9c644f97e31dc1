package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/core"
	apperrors "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/observability"
	"github.com/garminwrap/garminwrap/internal/server/handlers"
	servermw "github.com/garminwrap/garminwrap/internal/server/middleware"
)

// Default server timeouts. Downloads may retry for several seconds, so the
// write timeout leaves room for three upstream attempts.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 120 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	host    string
	port    int
	service *core.Service
	health  *handlers.HealthManager

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a new HTTP server serving svc
func New(host string, port int, svc *core.Service) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)      // correlation ID before anything logs
	r.Use(servermw.RequestMetrics) // sees the final status, including recovered panics
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:       r,
		host:         host,
		port:         port,
		service:      svc,
		health:       handlers.NewHealthManager(handlers.AppVersion),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	s.health.RegisterChecker("garmin_session", handlers.SessionChecker{Sessions: svc.Sessions})
	s.health.RegisterChecker("telemetry", handlers.TelemetryChecker())

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.host),
			zap.Int("port", s.port),
			zap.String("addr", addr),
			zap.String("service", s.service.Name))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Health exposes the probe manager so callers can register extra checkers
func (s *Server) Health() *handlers.HealthManager {
	return s.health
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
