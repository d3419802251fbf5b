package objective

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/registry"
)

// Default synchronicity settings.
const (
	defaultTargetIntervalSeconds = 60
	defaultTolerancePercent      = 10
	millisPerSecond              = 1000
)

// SynchronicityConfig is the stored configuration of Synchronicity.
type SynchronicityConfig struct {
	TargetIntervalSeconds float64 `json:"targetIntervalSeconds"`
	TolerancePercent      float64 `json:"tolerancePercent"`
}

// DefaultSynchronicityConfig returns a one-minute target with 10% tolerance.
func DefaultSynchronicityConfig() SynchronicityConfig {
	return SynchronicityConfig{
		TargetIntervalSeconds: defaultTargetIntervalSeconds,
		TolerancePercent:      defaultTolerancePercent,
	}
}

func (c SynchronicityConfig) validate() error {
	switch {
	case c.TargetIntervalSeconds <= 0 || math.IsNaN(c.TargetIntervalSeconds) || math.IsInf(c.TargetIntervalSeconds, 0):
		return fmt.Errorf("%w: targetIntervalSeconds must be positive", ErrInvalidConfiguration)
	case c.TolerancePercent < 0 || math.IsNaN(c.TolerancePercent):
		return fmt.Errorf("%w: tolerancePercent must not be negative", ErrInvalidConfiguration)
	}
	return nil
}

// Synchronicity rewards laps whose length matches a target interval.
type Synchronicity struct {
	cfg SynchronicityConfig
}

// NewSynchronicity validates cfg and returns the strategy.
func NewSynchronicity(cfg SynchronicityConfig) (*Synchronicity, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Synchronicity{cfg: cfg}, nil
}

func newSynchronicityFromConfig(raw json.RawMessage) (Objective, error) {
	cfg := DefaultSynchronicityConfig()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}
	return NewSynchronicity(cfg)
}

// Config returns the strategy settings.
func (o *Synchronicity) Config() SynchronicityConfig { return o.cfg }

func (*Synchronicity) Type() string  { return TypeSynchronicity }
func (*Synchronicity) Title() string { return "Keep the rhythm" }
func (o *Synchronicity) Description() string {
	return fmt.Sprintf("Laps closest to %gs rank higher.", o.cfg.TargetIntervalSeconds)
}

func lapOpener(t model.EventType) bool {
	return t == model.TypeStart || t == model.TypeSplit || t == model.TypeResume
}

func lapCloser(t model.EventType) bool {
	return t == model.TypeSplit || t == model.TypeStop
}

// Evaluate returns 1 for laps exactly on target, falling towards 0 as the
// mean normalized deviation grows. Cores without a lap score 0.
func (o *Synchronicity) Evaluate(core model.Core) float64 {
	seq := core.Sequence
	if len(seq) < 2 {
		return 0
	}
	target := o.cfg.TargetIntervalSeconds * millisPerSecond
	var total float64
	var laps int
	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1], seq[i]
		if !lapOpener(prev.Type) || !lapCloser(cur.Type) {
			continue
		}
		actual := float64(cur.Timestamp.DurationFrom(prev.Timestamp).Milliseconds())
		total += math.Abs(actual-target) / target
		laps++
	}
	if laps == 0 {
		return 0
	}
	return math.Max(0, 1-total/float64(laps))
}

func (o *Synchronicity) Compare(a, b model.Core) float64 { return compareBy(o, a, b) }

func (o *Synchronicity) Serialize() (registry.Record, error) {
	raw, err := json.Marshal(o.cfg)
	if err != nil {
		return registry.Record{}, fmt.Errorf("encode synchronicity config: %w", err)
	}
	return registry.Record{Type: o.Type(), Configuration: raw}, nil
}
