// Package state implements the event-sourced timing engine of a stopwatch.
//
// A stopwatch is an append-only sequence of typed, timestamped events.
// Running, elapsed and total durations are derived from that sequence:
// start and resume open a running interval, stop closes it. Controller
// derives every value on demand; CachedController wraps a Controller and
// memoizes the expensive derivations until the next mutation.
//
// Neither type is safe for concurrent use.
package state

import (
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/timestamp"
)

// Engine is the operation set shared by Controller and CachedController.
type Engine interface {
	Start(ts timestamp.Timestamp) error
	Stop(ts timestamp.Timestamp) error
	Resume(ts timestamp.Timestamp) error
	Reset(ts timestamp.Timestamp)

	AddEvent(t model.EventType, title string, ts timestamp.Timestamp, description string, unit *model.Unit) (model.Event, error)
	RemoveEvent(ev model.Event) bool

	TotalDuration() time.Duration
	ElapsedTime() time.Duration
	DurationBetweenEvents(id1, id2 string) time.Duration
	ElapsedTimeBetweenEvents(startID, endID string) time.Duration
	RunningIntervals() []Interval

	Events(types ...model.EventType) []model.Event
	LastEvent(types ...model.EventType) (model.Event, bool)
	IsRunning() bool
	IsActive() bool
	State() model.Core
	SetLap(lap *model.Unit)
	Lap() *model.Unit
}

var (
	_ Engine = (*Controller)(nil)
	_ Engine = (*CachedController)(nil)
)
