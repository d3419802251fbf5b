// Package objective defines pluggable scoring strategies over a stopwatch's
// event sequence and their registration for persistence.
//
// Every strategy scores so that higher is better and compares with
// Evaluate(a) - Evaluate(b): a positive result ranks a ahead of b.
package objective

import (
	"errors"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
)

// Built-in objective tags.
const (
	TypeTimeMinimization = "time-minimization"
	TypeUnitAccumulation = "unit-accumulation"
	TypeSynchronicity    = "synchronicity"
)

// ErrInvalidConfiguration is returned for out-of-range strategy settings.
var ErrInvalidConfiguration = errors.New("invalid objective configuration")

// Objective scores and ranks stopwatch cores.
type Objective interface {
	registry.Serializable

	Type() string
	Title() string
	Description() string

	// Evaluate scores core; higher is better.
	Evaluate(core model.Core) float64
	// Compare returns a positive value when a ranks ahead of b.
	Compare(a, b model.Core) float64
}

// Registry restores objectives from their stored records.
type Registry = registry.Registry[Objective]

// NewRegistry returns an empty objective registry.
func NewRegistry() *Registry {
	return registry.New[Objective]()
}

// RegisterBuiltins registers the shipped strategies. Call it once at
// startup, before the registry is handed to the persistence layer.
func RegisterBuiltins(reg *Registry) error {
	if err := reg.Register(TypeTimeMinimization, newTimeMinimization); err != nil {
		return err
	}
	if err := reg.Register(TypeUnitAccumulation, newUnitAccumulation); err != nil {
		return err
	}
	return reg.Register(TypeSynchronicity, newSynchronicityFromConfig)
}

func compareBy(o Objective, a, b model.Core) float64 {
	return o.Evaluate(a) - o.Evaluate(b)
}
