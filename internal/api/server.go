// Package api exposes tasks, their derived records and phase triggers over
// HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/monitoring"
	"github.com/sells-group/vendor-pipeline/internal/orchestrate"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Triggerer starts a phase and waits for it. *orchestrate.Shell satisfies it.
type Triggerer interface {
	Trigger(ctx context.Context, phase model.Phase, taskID string) (*orchestrate.Outcome, error)
}

// Reporter assembles a task report. *pipeline.Pipeline satisfies it.
type Reporter interface {
	BuildReport(ctx context.Context, taskID string) (*model.Report, error)
}

// StatsSource produces a metrics snapshot. *monitoring.Collector satisfies it.
type StatsSource interface {
	Collect(ctx context.Context) (*monitoring.MetricsSnapshot, error)
}

// Option configures a Server.
type Option func(*Server)

// WithStats enables GET /stats.
func WithStats(s StatsSource) Option {
	return func(srv *Server) { srv.stats = s }
}

// WithCORSOrigins sets the allowed CORS origins. The default allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(srv *Server) {
		if len(origins) > 0 {
			srv.origins = origins
		}
	}
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store    store.Store
	trigger  Triggerer
	reporter Reporter
	stats    StatsSource
	origins  []string
}

// New creates a Server.
func New(st store.Store, trigger Triggerer, reporter Reporter, opts ...Option) *Server {
	s := &Server{
		store:    st,
		trigger:  trigger,
		reporter: reporter,
		origins:  []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router with middleware and every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTask)
			r.Post("/phase{n}", s.handleTriggerPhase)
			r.Get("/report", s.handleReport)
			r.Get("/mappings", s.handleMappings)
		})
	})

	r.Get("/vendors", s.handleVendors)
	r.Get("/subtasks", s.handleSubtasks)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// HTTPServer wraps the router in an http.Server with conservative timeouts.
// WriteTimeout leaves room for a phase trigger to reach its wait ceiling.
func (s *Server) HTTPServer(addr string, phaseTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      phaseTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
