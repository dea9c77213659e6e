// Package api exposes the engine over HTTP for remote and mobile clients.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gabmichels/chloe-engine/internal/calendar"
	"github.com/gabmichels/chloe-engine/internal/engine"
	"github.com/gabmichels/chloe-engine/internal/store"
)

// Server represents the API server
type Server struct {
	store    *store.Store
	calendar *calendar.Scheduler
	engine   *engine.Engine
	router   chi.Router
}

// NewServer creates a new API server
func NewServer(st *store.Store, cal *calendar.Scheduler, eng *engine.Engine) *Server {
	s := &Server{
		store:    st,
		calendar: cal,
		engine:   eng,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/api/v1/health", s.HealthCheck)

	// Tasks
	r.Get("/api/v1/tasks", s.ListTasks)
	r.Post("/api/v1/tasks", s.CreateTask)
	r.Get("/api/v1/tasks/{id}", s.GetTask)
	r.Put("/api/v1/tasks/{id}", s.UpdateTask)
	r.Post("/api/v1/tasks/{id}/status", s.UpdateTaskStatus)
	r.Post("/api/v1/tasks/{id}/notes", s.AddNote)
	r.Post("/api/v1/tasks/{id}/dependencies", s.AddDependency)
	r.Post("/api/v1/tasks/{id}/reschedule", s.RescheduleTask)

	// Goal decomposition
	r.Post("/api/v1/goals", s.DecomposeGoal)

	// Priorities and decision loop
	r.Get("/api/v1/priorities", s.GetPriorities)
	r.Post("/api/v1/run", s.RunDecision)

	// Calendar
	r.Post("/api/v1/schedule/auto", s.AutoSchedule)
	r.Get("/api/v1/schedule/today", s.TodaysSchedule)
	r.Get("/api/v1/schedule/current", s.CurrentTask)

	// Execution log
	r.Get("/api/v1/log", s.GetLog)
}

// Router returns the chi router for use with http.Server
func (s *Server) Router() http.Handler {
	return s.router
}

// CORS allows browser clients from any origin to reach the API
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
