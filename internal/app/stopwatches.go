package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/state"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	"github.com/okian/stopwatch/internal/domain/types"
	"github.com/okian/stopwatch/pkg/logger"
	"github.com/okian/stopwatch/pkg/metrics"
)

// CreateInput describes a new stopwatch.
type CreateInput struct {
	Title       string
	Description string
	Lap         *model.Unit
	Objective   *registry.Record
}

// EventInput describes an event appended through AddEvent. A nil
// Timestamp means now.
type EventInput struct {
	Type        model.EventType
	Title       string
	Description string
	Timestamp   *timestamp.Timestamp
	Unit        *model.Unit
}

// Create registers and persists a new idle stopwatch.
func (s *Service) Create(ctx context.Context, in CreateInput) (types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return types.Stopwatch{}, ErrNotOpen
	}

	now := s.clock()
	w := &watch{
		id:         s.newID(),
		annotation: model.Annotation{Title: in.Title, Description: in.Description},
		metadata:   model.Metadata{Creation: now, LastModification: now},
		ctrl:       s.controller(model.Core{}),
	}
	if in.Lap != nil {
		w.ctrl.SetLap(in.Lap)
	}
	if in.Objective != nil {
		obj, err := s.objectives.Deserialize(*in.Objective)
		if err != nil {
			return types.Stopwatch{}, err
		}
		w.objective = obj
	}

	if err := s.persist(ctx, w); err != nil {
		return types.Stopwatch{}, err
	}
	s.watches[w.id] = w
	metrics.UpdateStopwatchCount(len(s.watches))
	s.logger.Debug(ctx, "stopwatch created",
		logger.String("id", w.id), logger.String("title", in.Title), logger.Int64("created_ms", now.UnixMilli()))
	return s.view(w), nil
}

// Get returns one stopwatch.
func (s *Service) Get(ctx context.Context, id string) (types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.lookup(ctx, id)
	if err != nil {
		return types.Stopwatch{}, err
	}
	return s.view(w), nil
}

// List returns every stopwatch ordered by creation time, then id.
func (s *Service) List(_ context.Context) ([]types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil, ErrNotOpen
	}
	out := make([]types.Stopwatch, 0, len(s.watches))
	for _, w := range s.ordered() {
		out = append(out, s.view(w))
	}
	return out, nil
}

// Delete removes a stopwatch from memory and from the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		metrics.RecordErrorByComponent("store", "delete")
		return fmt.Errorf("delete stopwatch %s: %w", id, err)
	}
	delete(s.watches, id)
	metrics.UpdateStopwatchCount(len(s.watches))
	return nil
}

// Start appends a start event.
func (s *Service) Start(ctx context.Context, id string) (types.Stopwatch, error) {
	return s.transition(ctx, id, "start", func(c *state.CachedController, ts timestamp.Timestamp) error {
		return c.Start(ts)
	})
}

// Stop appends a stop event.
func (s *Service) Stop(ctx context.Context, id string) (types.Stopwatch, error) {
	return s.transition(ctx, id, "stop", func(c *state.CachedController, ts timestamp.Timestamp) error {
		return c.Stop(ts)
	})
}

// Resume appends a resume event.
func (s *Service) Resume(ctx context.Context, id string) (types.Stopwatch, error) {
	return s.transition(ctx, id, "resume", func(c *state.CachedController, ts timestamp.Timestamp) error {
		return c.Resume(ts)
	})
}

// Reset clears the sequence and keeps the lap and objective.
func (s *Service) Reset(ctx context.Context, id string) (types.Stopwatch, error) {
	return s.transition(ctx, id, "reset", func(c *state.CachedController, ts timestamp.Timestamp) error {
		c.Reset(ts)
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id, kind string, do func(*state.CachedController, timestamp.Timestamp) error) (types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.mutate(ctx, id, func(w *watch) error {
		return recordTransition(kind, do(w.ctrl, s.clock()))
	})
	if err != nil {
		return types.Stopwatch{}, err
	}
	s.logger.Debug(ctx, "stopwatch transition",
		logger.String("id", id), logger.String("kind", kind), logger.Bool("running", w.ctrl.IsRunning()))
	return s.view(w), nil
}

// AddEvent appends a non-transition event.
func (s *Service) AddEvent(ctx context.Context, id string, in EventInput) (model.Event, error) {
	switch in.Type {
	case model.TypeStart, model.TypeStop, model.TypeResume:
		return model.Event{}, ErrTransitionEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev model.Event
	_, err := s.mutate(ctx, id, func(w *watch) error {
		ts := s.clock()
		if in.Timestamp != nil {
			ts = *in.Timestamp
		}
		var err error
		ev, err = w.ctrl.AddEvent(in.Type, in.Title, ts, in.Description, in.Unit)
		return err
	})
	if err != nil {
		return model.Event{}, err
	}
	metrics.RecordEventAdded(string(in.Type))
	return ev, nil
}

// RemoveEvent drops the event with eventID.
func (s *Service) RemoveEvent(ctx context.Context, id, eventID string) (types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.mutate(ctx, id, func(w *watch) error {
		if !w.ctrl.RemoveEvent(model.Event{ID: eventID}) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil
	})
	if err != nil {
		return types.Stopwatch{}, err
	}
	metrics.RecordEventRemoved()
	return s.view(w), nil
}

// Elapsed returns active time between two events. Empty ids stand for the
// beginning and the end (or now, while running) of the sequence.
func (s *Service) Elapsed(ctx context.Context, id, from, to string) (types.Measurement, error) {
	return s.measure(ctx, id, from, to, func(c *state.CachedController) time.Duration {
		return c.ElapsedTimeBetweenEvents(from, to)
	})
}

// Duration returns the wall-clock span between two events.
func (s *Service) Duration(ctx context.Context, id, from, to string) (types.Measurement, error) {
	return s.measure(ctx, id, from, to, func(c *state.CachedController) time.Duration {
		if from == "" && to == "" {
			return c.TotalDuration()
		}
		return c.DurationBetweenEvents(from, to)
	})
}

func (s *Service) measure(ctx context.Context, id, from, to string, query func(*state.CachedController) time.Duration) (types.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.lookup(ctx, id)
	if err != nil {
		return types.Measurement{}, err
	}
	d := query(w.ctrl)
	m := types.Measurement{From: from, To: to, Known: d != state.Unknown, MS: -1}
	if m.Known {
		m.MS = d.Milliseconds()
	}
	return m, nil
}

// SetObjective attaches the objective described by rec.
func (s *Service) SetObjective(ctx context.Context, id string, rec registry.Record) (types.Stopwatch, error) {
	obj, err := s.objectives.Deserialize(rec)
	if err != nil {
		return types.Stopwatch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.mutate(ctx, id, func(w *watch) error {
		w.objective = obj
		return nil
	})
	if err != nil {
		return types.Stopwatch{}, err
	}
	return s.view(w), nil
}

// ClearObjective detaches the objective, if any.
func (s *Service) ClearObjective(ctx context.Context, id string) (types.Stopwatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.mutate(ctx, id, func(w *watch) error {
		w.objective = nil
		return nil
	})
	if err != nil {
		return types.Stopwatch{}, err
	}
	return s.view(w), nil
}

func (s *Service) view(w *watch) types.Stopwatch {
	core := w.ctrl.State()
	intervals := w.ctrl.RunningIntervals()
	v := types.Stopwatch{
		ID:         w.id,
		Annotation: w.annotation,
		Metadata:   w.metadata,
		Running:    w.ctrl.IsRunning(),
		Active:     w.ctrl.IsActive(),
		ElapsedMS:  w.ctrl.ElapsedTime().Milliseconds(),
		TotalMS:    w.ctrl.TotalDuration().Milliseconds(),
		Lap:        core.Lap,
		Intervals:  make([]types.Interval, len(intervals)),
		Events:     core.Sequence,
	}
	if v.Events == nil {
		v.Events = []model.Event{}
	}
	for i, iv := range intervals {
		v.Intervals[i] = types.Interval{Open: iv.Open, Close: iv.Close}
	}
	if w.objective != nil {
		v.Objective = &types.Objective{
			Type:        w.objective.Type(),
			Title:       w.objective.Title(),
			Description: w.objective.Description(),
			Score:       w.objective.Evaluate(core),
		}
		if rec, err := w.objective.Serialize(); err == nil {
			v.Objective.Configuration = rec.Configuration
		}
	}
	return v
}
