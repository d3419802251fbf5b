// Package registry maps string tags to factories so that polymorphic values
// can be stored as {type, configuration} and rebuilt later without the
// storage format knowing any concrete type.
//
// A Registry is an explicit value: build one at startup, register the
// factories you need and pass it to whoever persists or restores values.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Record is the stored form of a registered value.
type Record struct {
	Type          string          `json:"type"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// Serializable values describe themselves as a Record.
type Serializable interface {
	Serialize() (Record, error)
}

// Factory rebuilds a value from its configuration. configuration may be nil.
type Factory[T any] func(configuration json.RawMessage) (T, error)

// Registry is a tag -> factory table. It is safe for concurrent use.
type Registry[T Serializable] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New creates an empty registry.
func New[T Serializable]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// Register binds tag to factory. A tag can be registered once.
func (r *Registry[T]) Register(tag string, factory Factory[T]) error {
	if tag == "" {
		return ErrEmptyTag
	}
	if factory == nil {
		return fmt.Errorf("%w: %q", ErrNilFactory, tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, tag)
	}
	r.factories[tag] = factory
	return nil
}

// Serialize asks v for its Record and checks that the tag can be restored.
func (r *Registry[T]) Serialize(v T) (Record, error) {
	rec, err := v.Serialize()
	if err != nil {
		return Record{}, fmt.Errorf("serialize: %w", err)
	}
	if !r.Has(rec.Type) {
		return Record{}, fmt.Errorf("serialize: %w: %q", ErrUnregistered, rec.Type)
	}
	return rec, nil
}

// Deserialize rebuilds a value with the factory registered for rec.Type.
func (r *Registry[T]) Deserialize(rec Record) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("deserialize: %w: %q", ErrUnregistered, rec.Type)
	}
	v, err := factory(rec.Configuration)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("deserialize %q: %w", rec.Type, err)
	}
	return v, nil
}

// Has reports whether tag is registered.
func (r *Registry[T]) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[tag]
	return ok
}

// Tags returns the registered tags in sorted order.
func (r *Registry[T]) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Clear removes every registration.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory[T])
}
