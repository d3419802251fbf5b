package timestamp

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const localName = "Local"

// hostZone resolves time.Local to a named location: $TZ first, then the
// /etc/localtime symlink. It returns nil when neither names a zone.
var hostZone = sync.OnceValue(func() *time.Location { //nolint:gochecknoglobals // resolved once per process
	if tz, ok := os.LookupEnv("TZ"); ok {
		tz = strings.TrimPrefix(tz, ":")
		if tz == "" {
			return time.UTC
		}
		if loc, err := time.LoadLocation(tz); err == nil && tz != localName {
			return loc
		}
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.LastIndex(target, "zoneinfo/"); i >= 0 {
			if loc, err := time.LoadLocation(target[i+len("zoneinfo/"):]); err == nil {
				return loc
			}
		}
	}
	return nil
})

// normalize replaces time.Local with a real zone so the encoded name is
// portable between hosts.
func normalize(t time.Time) time.Time {
	if t.Location() != time.Local {
		return t
	}
	_, offset := t.Zone()
	if loc := hostZone(); loc != nil {
		if in := t.In(loc); zoneOffset(in) == offset {
			return in
		}
	}
	return t.In(fixedZone(offset))
}

// fixedZone names whole-hour offsets with their Etc/GMT zone. Etc/GMT
// signs are inverted: Etc/GMT-2 is UTC+2.
func fixedZone(offsetSeconds int) *time.Location {
	switch {
	case offsetSeconds == 0:
		return time.UTC
	case offsetSeconds%3600 == 0:
		return time.FixedZone(fmt.Sprintf("Etc/GMT%+d", -offsetSeconds/3600), offsetSeconds)
	default:
		return time.FixedZone("", offsetSeconds)
	}
}

// resolveZone picks the location for a decoded triple. The name wins when
// it loads and agrees with the offset at that instant; otherwise the offset
// does.
func resolveZone(name string, ms int64, browserOffset int) *time.Location {
	offset := -browserOffset * 60
	if name == "" || name == localName {
		return fixedZone(offset)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fixedZone(offset)
	}
	if zoneOffset(time.UnixMilli(ms).In(loc)) != offset {
		return fixedZone(offset)
	}
	return loc
}

func zoneOffset(t time.Time) int {
	_, offset := t.Zone()
	return offset
}
