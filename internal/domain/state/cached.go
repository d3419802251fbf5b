package state

import (
	"slices"
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	"github.com/okian/stopwatch/pkg/metrics"
)

// invalid never matches a sequence length.
const invalid = -1

type eventPair struct {
	from, to string
}

// cache holds values derived from one generation of the sequence, where
// the generation is the sequence length.
type cache struct {
	generation int

	intervals []Interval
	running   bool
	// accumulating is true while the last interval is open, i.e. now
	// contributes to elapsed and total time.
	accumulating bool
	hasStart     bool

	// Valid while running: the historical part, up to the last event.
	lastEventTimestamp timestamp.Timestamp
	elapsedUpToLast    time.Duration
	totalUpToLast      time.Duration

	// Valid while stopped.
	completeElapsed time.Duration
	completeTotal   time.Duration

	// Closed (id, id) queries only.
	durations map[eventPair]time.Duration
	elapsed   map[eventPair]time.Duration
}

// CachedController exposes the Controller operations and memoizes derived
// durations. Every mutation drops the whole cache.
type CachedController struct {
	base  *Controller
	cache cache
}

// NewCached wraps base. The caller must not mutate base directly afterwards.
func NewCached(base *Controller) *CachedController {
	return &CachedController{base: base, cache: cache{generation: invalid}}
}

func (c *CachedController) invalidate() {
	c.cache = cache{generation: invalid}
}

// ensure rebuilds the cache when the sequence length no longer matches.
func (c *CachedController) ensure() *cache {
	cc, _ := c.refresh()
	return cc
}

// refresh rebuilds a stale cache and reports whether it did.
func (c *CachedController) refresh() (*cache, bool) {
	seq := c.base.sequence()
	if c.cache.generation == len(seq) {
		return &c.cache, false
	}
	metrics.RecordCacheRebuild()

	intervals := findRunningIntervals(seq)
	fresh := cache{
		generation:   len(seq),
		intervals:    intervals,
		running:      isRunning(seq),
		accumulating: lastIntervalOpen(seq, intervals),
		hasStart:     isActive(seq),
		durations:    make(map[eventPair]time.Duration),
		elapsed:      make(map[eventPair]time.Duration),
	}
	if fresh.running {
		last := len(seq) - 1
		fresh.lastEventTimestamp = seq[last].Timestamp
		fresh.elapsedUpToLast = sumOverlap(seq, intervals, 0, last, nil)
		if first := firstIndexOf(seq, model.TypeStart); first >= 0 {
			fresh.totalUpToLast = seq[last].Timestamp.DurationFrom(seq[first].Timestamp)
		}
	} else {
		fresh.completeElapsed = sumOverlap(seq, intervals, 0, len(seq), nil)
		fresh.completeTotal = totalDuration(seq, intervals, timestamp.Timestamp{})
	}
	c.cache = fresh
	return &c.cache, true
}

func recordLookup(query string, rebuilt bool) {
	if rebuilt {
		metrics.RecordCacheMiss(query)
		return
	}
	metrics.RecordCacheHit(query)
}

// liveDelta is the open-ended contribution of now, sampled on every call.
func (c *CachedController) liveDelta(cc *cache) time.Duration {
	if !cc.accumulating {
		return 0
	}
	return c.base.now().DurationFrom(cc.lastEventTimestamp)
}

// Start appends a start event and invalidates the cache.
func (c *CachedController) Start(ts timestamp.Timestamp) error {
	if err := c.base.Start(ts); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// Stop appends a stop event and invalidates the cache.
func (c *CachedController) Stop(ts timestamp.Timestamp) error {
	if err := c.base.Stop(ts); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// Resume appends a resume event and invalidates the cache.
func (c *CachedController) Resume(ts timestamp.Timestamp) error {
	if err := c.base.Resume(ts); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// Reset empties the sequence and invalidates the cache.
func (c *CachedController) Reset(ts timestamp.Timestamp) {
	c.base.Reset(ts)
	c.invalidate()
}

// AddEvent appends an event and invalidates the cache.
func (c *CachedController) AddEvent(t model.EventType, title string, ts timestamp.Timestamp, description string, unit *model.Unit) (model.Event, error) {
	ev, err := c.base.AddEvent(t, title, ts, description, unit)
	if err != nil {
		return model.Event{}, err
	}
	c.invalidate()
	return ev, nil
}

// RemoveEvent removes an event and invalidates the cache. A removal
// followed by an append restores the old length, so the length check
// alone would not catch it.
func (c *CachedController) RemoveEvent(ev model.Event) bool {
	removed := c.base.RemoveEvent(ev)
	if removed {
		c.invalidate()
	}
	return removed
}

// TotalDuration returns the cached span, extended to now while running.
func (c *CachedController) TotalDuration() time.Duration {
	cc, rebuilt := c.refresh()
	recordLookup("total", rebuilt)
	if !cc.running {
		return cc.completeTotal
	}
	if !cc.hasStart {
		return 0
	}
	return cc.totalUpToLast + c.liveDelta(cc)
}

// ElapsedTime returns the cached running time, extended to now while
// running.
func (c *CachedController) ElapsedTime() time.Duration {
	cc, rebuilt := c.refresh()
	recordLookup("elapsed", rebuilt)
	if !cc.running {
		return cc.completeElapsed
	}
	return cc.elapsedUpToLast + c.liveDelta(cc)
}

// DurationBetweenEvents memoizes non-sentinel results per event pair.
func (c *CachedController) DurationBetweenEvents(id1, id2 string) time.Duration {
	cc := c.ensure()
	key := eventPair{from: id1, to: id2}
	if d, ok := cc.durations[key]; ok {
		metrics.RecordCacheHit("duration_between")
		return d
	}
	metrics.RecordCacheMiss("duration_between")
	d := durationBetween(c.base.sequence(), id1, id2)
	if d != Unknown {
		cc.durations[key] = d
	}
	return d
}

// ElapsedTimeBetweenEvents memoizes results for two concrete ids. Queries
// ending at now are never stored.
func (c *CachedController) ElapsedTimeBetweenEvents(startID, endID string) time.Duration {
	if startID == "" && endID == "" {
		return c.ElapsedTime()
	}
	cc := c.ensure()
	closed := startID != "" && endID != ""
	key := eventPair{from: startID, to: endID}
	if closed {
		if d, ok := cc.elapsed[key]; ok {
			metrics.RecordCacheHit("elapsed_between")
			return d
		}
		metrics.RecordCacheMiss("elapsed_between")
	}
	intervals := func() []Interval { return cc.intervals }
	d := elapsedBetween(c.base.sequence(), intervals, startID, endID, c.base.now())
	if closed && d != Unknown {
		cc.elapsed[key] = d
	}
	return d
}

// RunningIntervals returns a copy of the cached intervals.
func (c *CachedController) RunningIntervals() []Interval {
	return slices.Clone(c.ensure().intervals)
}

// IsRunning reports the cached running flag.
func (c *CachedController) IsRunning() bool { return c.ensure().running }

// IsActive reports whether the stopwatch was ever started.
func (c *CachedController) IsActive() bool { return c.ensure().hasStart }

// Events returns the sequence, optionally filtered by type.
func (c *CachedController) Events(types ...model.EventType) []model.Event {
	return c.base.Events(types...)
}

// LastEvent returns the last event, optionally of the given types.
func (c *CachedController) LastEvent(types ...model.EventType) (model.Event, bool) {
	return c.base.LastEvent(types...)
}

// State returns a copy of the core.
func (c *CachedController) State() model.Core { return c.base.State() }

// SetLap replaces the lap configuration. Laps do not affect cached values.
func (c *CachedController) SetLap(lap *model.Unit) { c.base.SetLap(lap) }

// Lap returns a copy of the lap configuration.
func (c *CachedController) Lap() *model.Unit { return c.base.Lap() }
