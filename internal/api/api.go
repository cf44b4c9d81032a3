// Package api exposes the session over a local HTTP surface. Handlers are
// thin: they decode the request, call into the session manager, and map the
// manager's sentinels onto HTTP statuses.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/styloglo/styloglo/internal/session"
	"github.com/styloglo/styloglo/internal/stylist"
)

// Planner produces the lazy weekly style plan.
type Planner interface {
	WeeklyPlan(ctx context.Context, profile *stylist.StyleProfile) *stylist.Plan
}

// Server holds the handler dependencies.
type Server struct {
	sessions *session.Manager
	planner  Planner
}

func New(sessions *session.Manager, planner Planner) *Server {
	return &Server{sessions: sessions, planner: planner}
}

// Routes returns the API mux. Middleware is applied by the caller.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/session/image", s.handleSubmitImage)
	mux.HandleFunc("/api/session/mode", s.handleMode)
	mux.HandleFunc("/api/edit", s.handleEdit)
	mux.HandleFunc("/api/edit/style", s.handleStyleEdit)
	mux.HandleFunc("/api/edit/undo", s.handleUndo)
	mux.HandleFunc("/api/edit/reset", s.handleReset)
	mux.HandleFunc("/api/image/current", s.handleCurrentImage)
	mux.HandleFunc("/api/plan", s.handlePlan)
	mux.HandleFunc("/api/history/export", s.handleHistoryExport)

	return mux
}

// --- Middleware ---

func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only localhost origins: the server is a local companion process.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
