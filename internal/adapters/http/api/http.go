// Package api wires the stopwatch HTTP routes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/stopwatch/internal/app"
	"github.com/okian/stopwatch/internal/domain/dedupe"
	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/types"
	"github.com/okian/stopwatch/pkg/logger"
)

const (
	defaultLeaderboardLimit = 10
	defaultMaxLimit         = 100
	maxBodyBytes            = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Create(ctx context.Context, in service.CreateInput) (types.Stopwatch, error)
	Get(ctx context.Context, id string) (types.Stopwatch, error)
	List(ctx context.Context) ([]types.Stopwatch, error)
	Delete(ctx context.Context, id string) error

	Start(ctx context.Context, id string) (types.Stopwatch, error)
	Stop(ctx context.Context, id string) (types.Stopwatch, error)
	Resume(ctx context.Context, id string) (types.Stopwatch, error)
	Reset(ctx context.Context, id string) (types.Stopwatch, error)

	AddEvent(ctx context.Context, id string, in service.EventInput) (model.Event, error)
	RemoveEvent(ctx context.Context, id, eventID string) (types.Stopwatch, error)

	Elapsed(ctx context.Context, id, from, to string) (types.Measurement, error)
	Duration(ctx context.Context, id, from, to string) (types.Measurement, error)

	SetObjective(ctx context.Context, id string, rec registry.Record) (types.Stopwatch, error)
	ClearObjective(ctx context.Context, id string) (types.Stopwatch, error)
	Leaderboard(ctx context.Context, objectiveType string, limit int) ([]types.Entry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	deduper  dedupe.Deduper
	maxLimit int
	logger   logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithDeduper enables Idempotency-Key handling on mutating routes.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) { s.deduper = d }
}

// WithMaxLimit caps GET /leaderboard?limit.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the chi router with every route attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", HandleHealth)
	r.Handle("/metrics", MetricsHandler())
	r.Get("/leaderboard", s.handleLeaderboard)

	r.Route("/stopwatches", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.With(IdempotencyMiddleware(s.deduper)).Post("/", s.handleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/elapsed", s.handleElapsed)
			r.Get("/duration", s.handleDuration)

			r.Group(func(r chi.Router) {
				r.Use(IdempotencyMiddleware(s.deduper))
				r.Delete("/", s.handleDelete)
				r.Post("/start", s.handleStart)
				r.Post("/stop", s.handleStop)
				r.Post("/resume", s.handleResume)
				r.Post("/reset", s.handleReset)
				r.Post("/events", s.handleAddEvent)
				r.Delete("/events/{eventID}", s.handleRemoveEvent)
				r.Put("/objective", s.handleSetObjective)
				r.Delete("/objective", s.handleClearObjective)
			})
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with its classified status. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && s.logger != nil {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
