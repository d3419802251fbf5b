// Package model contains the domain models passed between layers.
package model

import (
	"github.com/okian/stopwatch/internal/domain/timestamp"
)

// EventType tags an event in a stopwatch sequence.
type EventType string

// Fundamental event types drive the running/stopped state machine.
const (
	TypeStart  EventType = "start"
	TypeStop   EventType = "stop"
	TypeResume EventType = "resume"
)

// Performance event types.
const (
	TypeSplit     EventType = "split"
	TypeCyclic    EventType = "cyclic"
	TypeLatency   EventType = "latency"
	TypeCapacity  EventType = "capacity"
	TypeThreshold EventType = "threshold"
)

// Quality event types.
const (
	TypeDrift        EventType = "drift"
	TypeEquilibrium  EventType = "equilibrium"
	TypeOscillation  EventType = "oscillation"
	TypeVariance     EventType = "variance"
	TypeCompensation EventType = "compensation"
	TypeStability    EventType = "stability"
)

// Progress event types.
const (
	TypeAccumulation    EventType = "accumulation"
	TypeConvergence     EventType = "convergence"
	TypeStateTransition EventType = "state-transition"
	TypeSaturation      EventType = "saturation"
	TypeMilestone       EventType = "milestone"
	TypeAcceleration    EventType = "acceleration"
	TypeDeceleration    EventType = "deceleration"
)

// Category groups event types.
type Category string

// Event categories.
const (
	CategoryFundamental Category = "fundamental"
	CategoryPerformance Category = "performance"
	CategoryQuality     Category = "quality"
	CategoryProgress    Category = "progress"
)

var categories = map[EventType]Category{
	TypeStart:  CategoryFundamental,
	TypeStop:   CategoryFundamental,
	TypeResume: CategoryFundamental,

	TypeSplit:     CategoryPerformance,
	TypeCyclic:    CategoryPerformance,
	TypeLatency:   CategoryPerformance,
	TypeCapacity:  CategoryPerformance,
	TypeThreshold: CategoryPerformance,

	TypeDrift:        CategoryQuality,
	TypeEquilibrium:  CategoryQuality,
	TypeOscillation:  CategoryQuality,
	TypeVariance:     CategoryQuality,
	TypeCompensation: CategoryQuality,
	TypeStability:    CategoryQuality,

	TypeAccumulation:    CategoryProgress,
	TypeConvergence:     CategoryProgress,
	TypeStateTransition: CategoryProgress,
	TypeSaturation:      CategoryProgress,
	TypeMilestone:       CategoryProgress,
	TypeAcceleration:    CategoryProgress,
	TypeDeceleration:    CategoryProgress,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	_, ok := categories[t]
	return ok
}

// CategoryOf returns the category of t.
func CategoryOf(t EventType) (Category, bool) {
	c, ok := categories[t]
	return c, ok
}

// Annotation is the human-facing label of an event or stopwatch.
type Annotation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Metadata records when an entity was created and last changed.
type Metadata struct {
	Creation         timestamp.Timestamp `json:"creation"`
	LastModification timestamp.Timestamp `json:"lastModification"`
}

// Unit is a measured quantity attached to an event, e.g. {5, "km"}.
type Unit struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Event is a single timestamped record in a stopwatch sequence.
type Event struct {
	ID         string              `json:"id"`
	Type       EventType           `json:"type"`
	Timestamp  timestamp.Timestamp `json:"timestamp"`
	Annotation Annotation          `json:"annotation"`
	Metadata   Metadata            `json:"metadata"`
	Unit       *Unit               `json:"unit,omitempty"`
}

// UnitValue returns the unit value, or 0 when the event carries none.
func (e Event) UnitValue() float64 {
	if e.Unit == nil {
		return 0
	}
	return e.Unit.Value
}

// Clone returns a copy of e that shares no pointers with it.
func (e Event) Clone() Event {
	if e.Unit != nil {
		u := *e.Unit
		e.Unit = &u
	}
	return e
}

// Core is the event sequence of one stopwatch plus its lap configuration.
// Index order is authoritative; timestamps are not required to be sorted.
type Core struct {
	Sequence []Event `json:"sequence"`
	Lap      *Unit   `json:"lap,omitempty"`
}

// Clone returns a deep copy of c.
func (c Core) Clone() Core {
	out := Core{Sequence: make([]Event, len(c.Sequence))}
	for i, e := range c.Sequence {
		out.Sequence[i] = e.Clone()
	}
	if c.Lap != nil {
		lap := *c.Lap
		out.Lap = &lap
	}
	return out
}
