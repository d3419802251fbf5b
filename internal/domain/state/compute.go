package state

import (
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/timestamp"
)

// Unknown is returned by read-side lookups for a missing event or an
// inverted range.
const Unknown time.Duration = -1

// Interval is a running interval [Open, Close) over sequence indices.
// Close equals the sequence length while the interval is still open.
type Interval struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// The functions below are pure: they read a sequence and never keep state.
// Controller and CachedController are both built on them.

func isRunning(seq []model.Event) bool {
	return len(seq) > 0 && seq[len(seq)-1].Type != model.TypeStop
}

func isActive(seq []model.Event) bool {
	return firstIndexOf(seq, model.TypeStart) >= 0
}

func firstIndexOf(seq []model.Event, t model.EventType) int {
	for i := range seq {
		if seq[i].Type == t {
			return i
		}
	}
	return -1
}

func indexOfID(seq []model.Event, id string) int {
	for i := range seq {
		if seq[i].ID == id {
			return i
		}
	}
	return -1
}

func opensInterval(t model.EventType) bool {
	return t == model.TypeStart || t == model.TypeResume
}

// findRunningIntervals scans forward once. Opening events inside an open
// interval and stops outside one are ignored.
func findRunningIntervals(seq []model.Event) []Interval {
	var out []Interval
	open := -1
	for i := range seq {
		switch {
		case open < 0 && opensInterval(seq[i].Type):
			open = i
		case open >= 0 && seq[i].Type == model.TypeStop:
			out = append(out, Interval{Open: open, Close: i})
			open = -1
		}
	}
	if open >= 0 {
		out = append(out, Interval{Open: open, Close: len(seq)})
	}
	return out
}

func lastIntervalOpen(seq []model.Event, intervals []Interval) bool {
	return len(intervals) > 0 && intervals[len(intervals)-1].Close == len(seq)
}

// runningAt reports whether an interval covers index i, judged from i and
// the events before it.
func runningAt(seq []model.Event, i int) bool {
	switch t := seq[i].Type; {
	case t == model.TypeStop:
		return false
	case opensInterval(t):
		return true
	}
	for j := i - 1; j >= 0; j-- {
		switch t := seq[j].Type; {
		case t == model.TypeStop:
			return false
		case opensInterval(t):
			return true
		}
	}
	return false
}

// noBoundaryBetween reports whether (start, end] holds no stop or resume.
func noBoundaryBetween(seq []model.Event, start, end int) bool {
	if end > len(seq)-1 {
		end = len(seq) - 1
	}
	for i := start + 1; i <= end; i++ {
		if t := seq[i].Type; t == model.TypeStop || t == model.TypeResume {
			return false
		}
	}
	return true
}

// sumOverlap adds the time each interval overlaps [start, end]. An overlap
// reaching the virtual index len(seq) uses now, or is skipped if now is nil.
func sumOverlap(seq []model.Event, intervals []Interval, start, end int, now *timestamp.Timestamp) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		lo, hi := max(start, iv.Open), min(end, iv.Close)
		if lo >= hi {
			continue
		}
		var until timestamp.Timestamp
		if hi == len(seq) {
			if now == nil {
				continue
			}
			until = *now
		} else {
			until = seq[hi].Timestamp
		}
		total += until.DurationFrom(seq[lo].Timestamp)
	}
	return total
}

// elapsedBetween resolves the two boundaries and sums active time between
// them. An empty startID means the sequence start, an empty endID means now.
func elapsedBetween(seq []model.Event, intervals func() []Interval, startID, endID string, now timestamp.Timestamp) time.Duration {
	n := len(seq)
	if n == 0 {
		if startID == "" && endID == "" {
			return 0
		}
		return Unknown
	}

	startIdx := 0
	if startID != "" {
		if startIdx = indexOfID(seq, startID); startIdx < 0 {
			return Unknown
		}
	}
	endIdx := n
	if endID != "" {
		if endIdx = indexOfID(seq, endID); endIdx < 0 {
			return Unknown
		}
	}
	if startIdx > endIdx {
		return Unknown
	}
	live := endID == ""

	if runningAt(seq, startIdx) && noBoundaryBetween(seq, startIdx, endIdx) {
		until := now
		if endIdx < n {
			until = seq[endIdx].Timestamp
		}
		return until.DurationFrom(seq[startIdx].Timestamp)
	}

	var livePtr *timestamp.Timestamp
	if live && isRunning(seq) {
		livePtr = &now
	}
	return sumOverlap(seq, intervals(), startIdx, endIdx, livePtr)
}

// durationBetween is the raw wall-clock difference between two events.
func durationBetween(seq []model.Event, id1, id2 string) time.Duration {
	i, j := indexOfID(seq, id1), indexOfID(seq, id2)
	if i < 0 || j < 0 {
		return Unknown
	}
	return seq[j].Timestamp.DurationFrom(seq[i].Timestamp)
}

// totalDuration spans from the first start to the last event, or to now
// while an interval is open.
func totalDuration(seq []model.Event, intervals []Interval, now timestamp.Timestamp) time.Duration {
	first := firstIndexOf(seq, model.TypeStart)
	if first < 0 {
		return 0
	}
	until := seq[len(seq)-1].Timestamp
	if lastIntervalOpen(seq, intervals) {
		until = now
	}
	return until.DurationFrom(seq[first].Timestamp)
}

func filterEvents(seq []model.Event, types []model.EventType) []model.Event {
	out := make([]model.Event, 0, len(seq))
	for _, e := range seq {
		if len(types) == 0 || containsType(types, e.Type) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func containsType(types []model.EventType, t model.EventType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
