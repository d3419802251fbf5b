// Package service owns the stopwatches behind the HTTP API: it serializes
// access to their controllers, persists every mutation and ranks them by
// objective.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/stopwatch/internal/adapters/repository"
	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/persistence"
	"github.com/okian/stopwatch/internal/domain/state"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	"github.com/okian/stopwatch/pkg/logger"
	"github.com/okian/stopwatch/pkg/metrics"
)

// watch is a stopwatch held in memory. The core lives in ctrl.
type watch struct {
	id         string
	annotation model.Annotation
	metadata   model.Metadata
	objective  objective.Objective
	ctrl       *state.CachedController
}

// Service implements the API dependencies for stopwatches.
type Service struct {
	mu sync.Mutex

	store      repository.Store
	objectives *objective.Registry
	adapter    *persistence.Adapter
	watches    map[string]*watch

	clock state.Clock
	newID func() string

	opened bool
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithObjectives sets the objective registry. Defaults to the builtins.
func WithObjectives(reg *objective.Registry) Option {
	return func(s *Service) {
		if reg != nil {
			s.objectives = reg
		}
	}
}

// WithClock sets the clock used for transitions, metadata and live queries.
func WithClock(clock state.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator sets the generator for stopwatch and event ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		watches: make(map[string]*watch),
		clock:   timestamp.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.objectives == nil {
		s.objectives = objective.NewRegistry()
		if err := objective.RegisterBuiltins(s.objectives); err != nil {
			return nil, fmt.Errorf("register objectives: %w", err)
		}
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.adapter = persistence.NewAdapter(s.objectives)
	return s, nil
}

// Open loads persisted stopwatches. Records that fail to decode are
// skipped and logged.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	recs, err := s.store.List(ctx)
	switch {
	case errors.Is(err, repository.ErrCorruptRecord):
		metrics.RecordErrorByComponent("service", "decode")
		s.logger.Warn(ctx, "skipping unreadable stored rows", logger.Error(err))
	case err != nil:
		metrics.RecordErrorByComponent("service", "load")
		return fmt.Errorf("load stopwatches: %w", err)
	}
	for _, rec := range recs {
		w, err := s.restore(rec)
		if err != nil {
			metrics.RecordErrorByComponent("service", "decode")
			s.logger.Warn(ctx, "skipping unreadable stopwatch", logger.String("id", rec.ID), logger.Error(err))
			continue
		}
		s.watches[w.id] = w
	}

	s.opened = true
	metrics.UpdateStopwatchCount(len(s.watches))
	s.logger.Info(ctx, "stopwatch service opened",
		logger.Int("stopwatches", len(s.watches)),
		logger.Any("objectives", s.objectives.Tags()),
	)
	return nil
}

// Close closes the store.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	s.logger.Info(context.Background(), "stopwatch service closed")
	return nil
}

// Objectives lists the registered objective tags.
func (s *Service) Objectives() []string {
	return s.objectives.Tags()
}

func (s *Service) controller(core model.Core) *state.CachedController {
	return state.NewCached(state.Restore(core, state.WithClock(s.clock), state.WithIDGenerator(s.newID)))
}

// lookup must be called with mu held. A stopwatch missing from memory is
// read through from the store, which picks up rows written by another
// process sharing it.
func (s *Service) lookup(ctx context.Context, id string) (*watch, error) {
	if !s.opened {
		return nil, ErrNotOpen
	}
	if w, ok := s.watches[id]; ok {
		return w, nil
	}
	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrStopwatchNotFound, id)
	case errors.Is(err, repository.ErrCorruptRecord):
		return nil, fmt.Errorf("%w: %s is unreadable: %w", ErrStopwatchNotFound, id, err)
	case err != nil:
		metrics.RecordErrorByComponent("store", "get")
		return nil, fmt.Errorf("load stopwatch %s: %w", id, err)
	}
	w, err := s.restore(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is unreadable: %w", ErrStopwatchNotFound, id, err)
	}
	s.watches[id] = w
	metrics.UpdateStopwatchCount(len(s.watches))
	return w, nil
}

func (s *Service) restore(rec persistence.Record) (*watch, error) {
	sw, err := s.adapter.FromPersistent(rec)
	if err != nil {
		return nil, err
	}
	return &watch{
		id:         sw.ID,
		annotation: sw.Annotation,
		metadata:   sw.Metadata,
		objective:  sw.Objective,
		ctrl:       s.controller(sw.Core),
	}, nil
}

func (s *Service) aggregate(w *watch) persistence.Stopwatch {
	return persistence.Stopwatch{
		ID:         w.id,
		Annotation: w.annotation,
		Core:       w.ctrl.State(),
		Metadata:   w.metadata,
		Objective:  w.objective,
	}
}

func (s *Service) persist(ctx context.Context, w *watch) error {
	rec, err := s.adapter.ToPersistent(s.aggregate(w))
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, rec); err != nil {
		metrics.RecordErrorByComponent("store", "save")
		return fmt.Errorf("save stopwatch %s: %w", w.id, err)
	}
	return nil
}

// mutate applies fn to the stopwatch and persists the result. A failed save
// rolls the in-memory stopwatch back.
func (s *Service) mutate(ctx context.Context, id string, fn func(w *watch) error) (*watch, error) {
	w, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *w
	prevCore := w.ctrl.State()

	if err := fn(w); err != nil {
		return nil, err
	}
	w.metadata.LastModification = s.clock()

	if err := s.persist(ctx, w); err != nil {
		*w = prev
		w.ctrl = s.controller(prevCore)
		s.logger.Error(ctx, "persist failed; change rolled back", logger.String("id", id), logger.Error(err))
		return nil, err
	}
	return w, nil
}

func recordTransition(kind string, err error) error {
	if err == nil {
		metrics.RecordTransition(kind)
		return nil
	}
	var te *state.TransitionError
	if errors.As(err, &te) {
		metrics.RecordInvalidTransition(string(te.Reason))
	}
	return err
}
