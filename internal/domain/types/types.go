// Package types contains common types used across the application
package types

import (
	"encoding/json"

	"github.com/okian/stopwatch/internal/domain/model"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int     `json:"rank"`
	StopwatchID string  `json:"stopwatch_id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
}

// Interval is a running interval over event indices, close exclusive.
type Interval struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// Objective describes the strategy attached to a stopwatch.
type Objective struct {
	Type          string          `json:"type"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	Score         float64         `json:"score"`
}

// Stopwatch is the read shape of a stopwatch.
type Stopwatch struct {
	ID         string           `json:"id"`
	Annotation model.Annotation `json:"annotation"`
	Metadata   model.Metadata   `json:"metadata"`
	Running    bool             `json:"running"`
	Active     bool             `json:"active"`
	ElapsedMS  int64            `json:"elapsed_ms"`
	TotalMS    int64            `json:"total_ms"`
	Lap        *model.Unit      `json:"lap,omitempty"`
	Intervals  []Interval       `json:"intervals"`
	Events     []model.Event    `json:"events"`
	Objective  *Objective       `json:"objective,omitempty"`
}

// Measurement is the result of a between-events query. Known is false when
// a boundary id does not resolve or the range is reversed.
type Measurement struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	MS    int64  `json:"ms"`
	Known bool   `json:"known"`
}
