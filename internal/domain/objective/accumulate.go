package objective

import (
	"encoding/json"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
)

// TimeMinimization rewards the smallest total of recorded unit values.
// It reads Unit.Value, not derived durations; callers that want real time
// minimized record durations as units.
type TimeMinimization struct{}

// NewTimeMinimization returns the time-minimization strategy.
func NewTimeMinimization() *TimeMinimization { return &TimeMinimization{} }

func newTimeMinimization(json.RawMessage) (Objective, error) { return NewTimeMinimization(), nil }

func (*TimeMinimization) Type() string  { return TypeTimeMinimization }
func (*TimeMinimization) Title() string { return "Minimize time" }
func (*TimeMinimization) Description() string {
	return "Lower recorded values on non-start events rank higher."
}

// Evaluate returns the negated sum of unit values over non-start events.
func (*TimeMinimization) Evaluate(core model.Core) float64 {
	var sum float64
	for _, e := range core.Sequence {
		if e.Type != model.TypeStart {
			sum += e.UnitValue()
		}
	}
	return -sum
}

func (o *TimeMinimization) Compare(a, b model.Core) float64 { return compareBy(o, a, b) }

func (o *TimeMinimization) Serialize() (registry.Record, error) {
	return registry.Record{Type: o.Type()}, nil
}

// UnitAccumulation rewards the largest total recorded on splits and stops.
type UnitAccumulation struct{}

// NewUnitAccumulation returns the unit-accumulation strategy.
func NewUnitAccumulation() *UnitAccumulation { return &UnitAccumulation{} }

func newUnitAccumulation(json.RawMessage) (Objective, error) { return NewUnitAccumulation(), nil }

func (*UnitAccumulation) Type() string  { return TypeUnitAccumulation }
func (*UnitAccumulation) Title() string { return "Accumulate units" }
func (*UnitAccumulation) Description() string {
	return "Higher totals recorded on split and stop events rank higher."
}

// Evaluate returns the sum of unit values over split and stop events.
func (*UnitAccumulation) Evaluate(core model.Core) float64 {
	var sum float64
	for _, e := range core.Sequence {
		if e.Type == model.TypeSplit || e.Type == model.TypeStop {
			sum += e.UnitValue()
		}
	}
	return sum
}

func (o *UnitAccumulation) Compare(a, b model.Core) float64 { return compareBy(o, a, b) }

func (o *UnitAccumulation) Serialize() (registry.Record, error) {
	return registry.Record{Type: o.Type()}, nil
}
