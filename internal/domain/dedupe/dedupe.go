// Package dedupe tracks idempotency keys of mutating requests.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSize bounds the number of keys kept when no size is configured.
const DefaultMaxSize = 10000

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed request can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// lruDeduper evicts the least recently recorded key once full.
type lruDeduper struct {
	seen    *lru.Cache[string, struct{}]
	maxSize int
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &lruDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize <= 0 {
		d.maxSize = DefaultMaxSize
	}
	// lru.New only fails for non-positive sizes.
	d.seen, _ = lru.New[string, struct{}](d.maxSize)
	return d
}

func (d *lruDeduper) SeenAndRecord(_ context.Context, key string) bool {
	ok, _ := d.seen.ContainsOrAdd(key, struct{}{})
	return ok
}

func (d *lruDeduper) Unrecord(_ context.Context, key string) {
	d.seen.Remove(key)
}

func (d *lruDeduper) Size() int64 {
	return int64(d.seen.Len())
}
