// Package repository stores persisted stopwatches.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/stopwatch/internal/domain/persistence"
	"github.com/okian/stopwatch/pkg/metrics"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Store provides read/write access to persisted stopwatches.
type Store interface {
	// Save inserts or replaces rec.
	Save(ctx context.Context, rec persistence.Record) error
	// Get returns ErrNotFound if id is unknown.
	Get(ctx context.Context, id string) (persistence.Record, error)
	// List returns every record ordered by creation time, then id. Rows
	// that cannot be decoded are left out and reported through an error
	// wrapping ErrCorruptRecord alongside the readable records.
	List(ctx context.Context) ([]persistence.Record, error)
	// Delete returns ErrNotFound if id is unknown.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open builds the store named by driver. path is only used by sqlite.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func sortRecords(recs []persistence.Record) {
	sort.Slice(recs, func(i, j int) bool {
		ci, cj := recs[i].Metadata.Creation.UnixMilli(), recs[j].Metadata.Creation.UnixMilli()
		if ci != cj {
			return ci < cj
		}
		return recs[i].ID < recs[j].ID
	})
}

func observe(driver, op string, start time.Time) {
	metrics.RecordStoreLatency(driver, op, float64(time.Since(start).Microseconds())/1000)
}
