package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/stopwatch/internal/domain/persistence"
)

// MemoryStore keeps records in a map. Records are copied on the way in
// and out.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]persistence.Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]persistence.Record)}
}

func cloneRecord(rec persistence.Record) persistence.Record {
	rec.Core = rec.Core.Clone()
	if rec.Objective != nil {
		obj := *rec.Objective
		obj.Configuration = append([]byte(nil), obj.Configuration...)
		rec.Objective = &obj
	}
	return rec
}

func (s *MemoryStore) Save(_ context.Context, rec persistence.Record) error {
	defer observe(DriverMemory, "save", time.Now())
	if rec.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	s.recs[rec.ID] = cloneRecord(rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (persistence.Record, error) {
	defer observe(DriverMemory, "get", time.Now())
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return persistence.Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) List(_ context.Context) ([]persistence.Record, error) {
	defer observe(DriverMemory, "list", time.Now())
	s.mu.RLock()
	out := make([]persistence.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, cloneRecord(rec))
	}
	s.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	defer observe(DriverMemory, "delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[id]; !ok {
		return ErrNotFound
	}
	delete(s.recs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
