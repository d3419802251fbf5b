// Package timestamp provides the immutable, zone-aware point in time the
// timing engine stamps its events with.
package timestamp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a wall-clock instant carrying its own time zone.
// Precision is one millisecond so that JSON round trips are lossless.
type Timestamp struct {
	t time.Time
}

// Now returns the current instant in the host's zone.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime converts t, dropping sub-millisecond precision and the
// monotonic clock reading. time.Local is replaced by the zone it stands for.
func FromTime(t time.Time) Timestamp {
	return Timestamp{t: normalize(t.Round(0).Truncate(time.Millisecond))}
}

// FromMillis builds a Timestamp from milliseconds since the Unix epoch.
// A nil loc means UTC.
func FromMillis(ms int64, loc *time.Location) Timestamp {
	if loc == nil {
		loc = time.UTC
	}
	return Timestamp{t: normalize(time.UnixMilli(ms).In(loc))}
}

// Time returns the underlying time value.
func (ts Timestamp) Time() time.Time { return ts.t }

// UnixMilli returns milliseconds since the Unix epoch.
func (ts Timestamp) UnixMilli() int64 { return ts.t.UnixMilli() }

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// DurationFrom returns ts - other.
func (ts Timestamp) DurationFrom(other Timestamp) time.Duration {
	return ts.t.Sub(other.t)
}

// Add returns ts shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return FromTime(ts.t.Add(d))
}

// Before reports whether ts is before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is after other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether ts and other denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// TimeZone returns the IANA name of the zone, or "" for an offset that has
// none.
func (ts Timestamp) TimeZone() string {
	loc := ts.t.Location()
	if loc == nil {
		return time.UTC.String()
	}
	return loc.String()
}

// TimeZoneOffset returns UTC minus local time in minutes, the browser
// convention (UTC+2 yields -120).
func (ts Timestamp) TimeZoneOffset() int {
	_, offset := ts.t.Zone()
	return -offset / 60
}

// String renders ts as RFC 3339 with milliseconds.
func (ts Timestamp) String() string {
	return ts.t.Format("2006-01-02T15:04:05.000Z07:00")
}

type wire struct {
	Timestamp      int64  `json:"timestamp"`
	TimeZone       string `json:"timeZone"`
	TimeZoneOffset int    `json:"timeZoneOffset"`
}

// MarshalJSON encodes ts as {timestamp, timeZone, timeZoneOffset}.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{
		Timestamp:      ts.UnixMilli(),
		TimeZone:       ts.TimeZone(),
		TimeZoneOffset: ts.TimeZoneOffset(),
	})
}

// UnmarshalJSON decodes the triple written by MarshalJSON. An unknown or
// host-relative zone name, or one that disagrees with the offset, falls
// back to a fixed zone built from the offset.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	*ts = FromMillis(w.Timestamp, resolveZone(w.TimeZone, w.Timestamp, w.TimeZoneOffset))
	return nil
}
