package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/types"
	"github.com/okian/stopwatch/pkg/metrics"
)

// ordered returns watches by creation time, then id. mu must be held.
func (s *Service) ordered() []*watch {
	out := make([]*watch, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].metadata.Creation.UnixMilli(), out[j].metadata.Creation.UnixMilli()
		if ci != cj {
			return ci < cj
		}
		return out[i].id < out[j].id
	})
	return out
}

type contender struct {
	w    *watch
	obj  objective.Objective
	core model.Core
}

// Leaderboard ranks the stopwatches whose objective has tag objectiveType,
// best first, and returns at most limit entries. Each pair is ordered with
// the objective of the first stopwatch; ties keep creation order.
func (s *Service) Leaderboard(_ context.Context, objectiveType string, limit int) ([]types.Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil, ErrNotOpen
	}

	var field []contender
	for _, w := range s.ordered() {
		if w.objective == nil || w.objective.Type() != objectiveType {
			continue
		}
		field = append(field, contender{w: w, obj: w.objective, core: w.ctrl.State()})
	}

	sort.SliceStable(field, func(i, j int) bool {
		return field[i].obj.Compare(field[i].core, field[j].core) > 0
	})

	if len(field) > limit {
		field = field[:limit]
	}
	entries := make([]types.Entry, len(field))
	for i, c := range field {
		entries[i] = types.Entry{
			Rank:        i + 1,
			StopwatchID: c.w.id,
			Title:       c.w.annotation.Title,
			Score:       c.obj.Evaluate(c.core),
		}
	}
	return entries, nil
}
