package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/appid"
	"github.com/garminwrap/garminwrap/internal/observability"
	"github.com/garminwrap/garminwrap/internal/server/handlers"
)

// AdminTokenEnv enables POST /admin/signal when set.
const AdminTokenEnv = appid.EnvPrefix + "ADMIN_TOKEN"

func (s *Server) registerRoutes() {
	garmin := handlers.NewGarminHandler(s.service)

	s.router.Get("/stats", garmin.Stats)
	s.router.Route("/activities", func(r chi.Router) {
		r.Get("/", garmin.Activities)
		r.Get("/{id}", garmin.Activity)
		r.Get("/{id}/download", garmin.Download)
	})

	// /health keeps the session-oriented body; the probes use the manager
	s.router.Get("/health", garmin.Health)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if token := os.Getenv(AdminTokenEnv); token != "" {
		s.registerAdminEndpoint(token)
	}
}

// registerAdminEndpoint exposes signal delivery (reload, shutdown) behind a
// bearer token, rate limited to 10 requests per minute.
func (s *Server) registerAdminEndpoint(token string) {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Admin signal endpoint enabled", zap.String("path", "/admin/signal"))
		logger.Warn("Admin endpoint enabled - keep this server off the public internet")
	}
}
