// Package server exposes the memory engine over a local HTTP API.
//
// The engine assumes a single live session loop per project — the
// server adds no serialization beyond SQLite's own locking, so an
// embedding system that runs concurrent writers against one project
// must serialize them itself.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/engine"
	"github.com/lazypower/synapse/internal/store"
)

// Server is the synapse HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	cfg     config.EngineConfig
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server around the given database and engine.
func New(db *store.DB, eng *engine.Engine, cfg config.EngineConfig, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		cfg:     cfg,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Post("/session/init", s.handleSessionInit)
			r.Post("/turn", s.handleTurn)
			r.Post("/session/end", s.handleSessionEnd)
			r.Get("/decayed", s.handleDecayed)
			r.Post("/events", s.handleEvent)

			r.Post("/memories", s.handleCreateMemory)
			r.Get("/memories", s.handleListMemories)
			r.Get("/memories/{memoryID}", s.handleGetMemory)
			r.Patch("/memories/{memoryID}", s.handleUpdateMemory)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
