// Package api implements the HTTP service: generation on demand plus
// CRUD over saved layout records. The service shares the Runner and
// Store with the CLI, so both surfaces behave identically.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roomforge/roomforge/pkg/generate"
	"github.com/roomforge/roomforge/pkg/store"
)

// Server wires the generation runner and the optional record store
// into an HTTP handler.
type Server struct {
	runner *generate.Runner
	store  store.Store // nil disables the /api/layouts endpoints
	logger *log.Logger
}

// NewServer creates a server. A nil store disables record endpoints;
// they respond 404.
func NewServer(runner *generate.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, logger: logger}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		if s.store != nil {
			r.Get("/layouts", s.handleList)
			r.Get("/layouts/{id}", s.handleGet)
			r.Delete("/layouts/{id}", s.handleDelete)
		}
	})
	return r
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID assigns every request a uuid, echoed in the X-Request-Id
// header and available to handlers via the context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id assigned by the middleware, or ""
// outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
