// Package http provides the operational HTTP server: health and
// readiness probes, Prometheus metrics, and sweep progress.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timedealhq/creditbot/internal/app"
	"github.com/timedealhq/creditbot/internal/config"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Server is the operational HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer creates the API server: the command dispatch surface plus
// health, readiness, metrics, and sweep progress.
func NewServer(cfg *config.ServerConfig, log *logger.Logger, db, cache Pinger, sweeps app.SweepStore, commands *app.CommandService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := cache.HealthCheck(ctx); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Handle("/metrics", promhttp.Handler())

	NewCommandHandler(commands, log).Register(r)

	r.Get("/v1/sweeps/latest", func(w http.ResponseWriter, req *http.Request) {
		report, err := sweeps.Latest(req.Context())
		if err != nil {
			log.Error("failed to read latest sweep", "error", err)
			http.Error(w, "sweep store unavailable", http.StatusServiceUnavailable)
			return
		}
		if report == nil {
			http.Error(w, "no sweep has run", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  time.Minute,
		},
		logger: log.With("component", "ops_server"),
	}
}

// Start runs the server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
