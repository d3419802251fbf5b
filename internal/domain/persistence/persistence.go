// Package persistence converts runtime stopwatches to their stored form and back.
package persistence

import (
	"errors"
	"fmt"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/registry"
)

// ErrMissingID is returned for records without an identifier.
var ErrMissingID = errors.New("stopwatch record has no id")

// Stopwatch is the runtime aggregate owned by the service.
type Stopwatch struct {
	ID         string
	Annotation model.Annotation
	Core       model.Core
	Metadata   model.Metadata
	Objective  objective.Objective
}

// Record is the stored form of a Stopwatch.
type Record struct {
	ID         string           `json:"id"`
	Annotation model.Annotation `json:"annotation"`
	Core       model.Core       `json:"core"`
	Metadata   model.Metadata   `json:"metadata"`
	Objective  *registry.Record `json:"objective,omitempty"`
}

// Adapter maps stopwatches to records using an objective registry.
type Adapter struct {
	objectives *objective.Registry
}

// NewAdapter returns an adapter that resolves objectives through reg.
func NewAdapter(reg *objective.Registry) *Adapter {
	return &Adapter{objectives: reg}
}

// ToPersistent returns the stored form of sw. The core is deep-copied.
func (a *Adapter) ToPersistent(sw Stopwatch) (Record, error) {
	rec := Record{
		ID:         sw.ID,
		Annotation: sw.Annotation,
		Core:       sw.Core.Clone(),
		Metadata:   sw.Metadata,
	}
	if sw.Objective != nil {
		obj, err := a.objectives.Serialize(sw.Objective)
		if err != nil {
			return Record{}, fmt.Errorf("stopwatch %s: %w", sw.ID, err)
		}
		rec.Objective = &obj
	}
	return rec, nil
}

// FromPersistent rebuilds a stopwatch, restoring its objective by tag.
func (a *Adapter) FromPersistent(rec Record) (Stopwatch, error) {
	if rec.ID == "" {
		return Stopwatch{}, ErrMissingID
	}
	sw := Stopwatch{
		ID:         rec.ID,
		Annotation: rec.Annotation,
		Core:       rec.Core.Clone(),
		Metadata:   rec.Metadata,
	}
	if rec.Objective != nil {
		obj, err := a.objectives.Deserialize(*rec.Objective)
		if err != nil {
			return Stopwatch{}, fmt.Errorf("stopwatch %s: %w", rec.ID, err)
		}
		sw.Objective = obj
	}
	return sw, nil
}
