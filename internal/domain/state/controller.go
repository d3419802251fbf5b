package state

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/timestamp"
)

// Clock returns the current instant.
type Clock func() timestamp.Timestamp

// Option applies a configuration option to a Controller.
type Option func(*Controller)

// WithClock replaces the clock used for "now" and for event metadata.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithIDGenerator replaces the event id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// Controller is the uncached engine. Every query rescans the sequence.
type Controller struct {
	core  model.Core
	now   Clock
	newID func() string
}

// New creates a controller over an empty sequence.
func New(opts ...Option) *Controller {
	return Restore(model.Core{}, opts...)
}

// Restore creates a controller over a copy of an existing core.
func Restore(core model.Core, opts ...Option) *Controller {
	c := &Controller{
		core:  core.Clone(),
		now:   timestamp.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start appends a start event. It fails while running.
func (c *Controller) Start(ts timestamp.Timestamp) error {
	if c.IsRunning() {
		return ErrStartWhileRunning
	}
	c.appendEvent(c.newEvent(model.TypeStart, "Start", ts, "", nil))
	return nil
}

// Stop appends a stop event. It fails unless running.
func (c *Controller) Stop(ts timestamp.Timestamp) error {
	if !c.IsRunning() {
		return ErrStopWhileNotRunning
	}
	c.appendEvent(c.newEvent(model.TypeStop, "Stop", ts, "", nil))
	return nil
}

// Resume appends a resume event. The stopwatch must be stopped, must have
// been started before, and the last event must be the stop.
func (c *Controller) Resume(ts timestamp.Timestamp) error {
	switch {
	case c.IsRunning():
		return ErrResumeWhileRunning
	case !c.IsActive():
		return ErrResumeNeverStarted
	}
	if last, _ := c.LastEvent(); last.Type != model.TypeStop {
		return ErrResumeAfterNonStopEvent
	}
	c.appendEvent(c.newEvent(model.TypeResume, "Resume", ts, "", nil))
	return nil
}

// Reset empties the sequence and keeps the lap configuration. The
// timestamp is not recorded in the core; owners stamp their own metadata.
func (c *Controller) Reset(_ timestamp.Timestamp) {
	c.core = model.Core{Lap: c.core.Lap}
}

// AddEvent appends an event of any known type. Timestamps are taken as
// given: callers must supply them in causal order.
func (c *Controller) AddEvent(t model.EventType, title string, ts timestamp.Timestamp, description string, unit *model.Unit) (model.Event, error) {
	if !t.Valid() {
		return model.Event{}, ErrUnknownEventType
	}
	if unit != nil {
		u := *unit
		unit = &u
	}
	ev := c.newEvent(t, title, ts, description, unit)
	c.appendEvent(ev)
	return ev, nil
}

// RemoveEvent drops the first event whose id matches ev.ID.
func (c *Controller) RemoveEvent(ev model.Event) bool {
	idx := indexOfID(c.core.Sequence, ev.ID)
	if idx < 0 {
		return false
	}
	c.core.Sequence = slices.Delete(slices.Clone(c.core.Sequence), idx, idx+1)
	return true
}

// TotalDuration is the wall-clock span from the first start to the last
// event, or to now while running. It is zero without a start.
func (c *Controller) TotalDuration() time.Duration {
	seq := c.core.Sequence
	return totalDuration(seq, findRunningIntervals(seq), c.now())
}

// ElapsedTime is the cumulative running time, excluding stopped spans.
func (c *Controller) ElapsedTime() time.Duration {
	return c.ElapsedTimeBetweenEvents("", "")
}

// DurationBetweenEvents is the raw difference id2 - id1 regardless of
// running state, or Unknown if either id is absent.
func (c *Controller) DurationBetweenEvents(id1, id2 string) time.Duration {
	return durationBetween(c.core.Sequence, id1, id2)
}

// ElapsedTimeBetweenEvents is the running time between two events. An
// empty startID means the first event, an empty endID means now. It
// returns Unknown for missing ids or an inverted range.
func (c *Controller) ElapsedTimeBetweenEvents(startID, endID string) time.Duration {
	seq := c.core.Sequence
	intervals := func() []Interval { return findRunningIntervals(seq) }
	return elapsedBetween(seq, intervals, startID, endID, c.now())
}

// RunningIntervals returns every running interval in sequence order.
func (c *Controller) RunningIntervals() []Interval {
	return findRunningIntervals(c.core.Sequence)
}

// Events returns the sequence, optionally filtered by type.
func (c *Controller) Events(types ...model.EventType) []model.Event {
	return filterEvents(c.core.Sequence, types)
}

// LastEvent returns the last event, optionally of the given types.
func (c *Controller) LastEvent(types ...model.EventType) (model.Event, bool) {
	seq := c.core.Sequence
	for i := len(seq) - 1; i >= 0; i-- {
		if len(types) == 0 || containsType(types, seq[i].Type) {
			return seq[i].Clone(), true
		}
	}
	return model.Event{}, false
}

// IsRunning reports whether the sequence is non-empty and does not end in
// a stop.
func (c *Controller) IsRunning() bool { return isRunning(c.core.Sequence) }

// IsActive reports whether the stopwatch was ever started.
func (c *Controller) IsActive() bool { return isActive(c.core.Sequence) }

// State returns a copy of the core.
func (c *Controller) State() model.Core { return c.core.Clone() }

// SetLap replaces the lap configuration; nil clears it.
func (c *Controller) SetLap(lap *model.Unit) {
	if lap != nil {
		l := *lap
		lap = &l
	}
	c.core.Lap = lap
}

// Lap returns a copy of the lap configuration.
func (c *Controller) Lap() *model.Unit {
	if c.core.Lap == nil {
		return nil
	}
	l := *c.core.Lap
	return &l
}

func (c *Controller) newEvent(t model.EventType, title string, ts timestamp.Timestamp, description string, unit *model.Unit) model.Event {
	now := c.now()
	return model.Event{
		ID:         c.newID(),
		Type:       t,
		Timestamp:  ts,
		Annotation: model.Annotation{Title: title, Description: description},
		Metadata:   model.Metadata{Creation: now, LastModification: now},
		Unit:       unit,
	}
}

// appendEvent never mutates the previous backing array, so slices handed
// out earlier stay valid.
func (c *Controller) appendEvent(ev model.Event) {
	seq := make([]model.Event, len(c.core.Sequence), len(c.core.Sequence)+1)
	copy(seq, c.core.Sequence)
	c.core.Sequence = append(seq, ev)
}

// sequence exposes the current sequence to CachedController without a copy.
func (c *Controller) sequence() []model.Event { return c.core.Sequence }
