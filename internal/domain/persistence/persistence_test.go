package persistence_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/persistence"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	. "github.com/smartystreets/goconvey/convey"
)

func at(ms int64) timestamp.Timestamp { return timestamp.FromMillis(ms, time.UTC) }

func sample() model.Core {
	return model.Core{
		Sequence: []model.Event{
			{ID: "a", Type: model.TypeStart, Timestamp: at(0)},
			{ID: "b", Type: model.TypeSplit, Timestamp: at(1000), Unit: &model.Unit{Value: 5, Unit: "m"}},
			{ID: "c", Type: model.TypeStop, Timestamp: at(2000), Unit: &model.Unit{Value: 3}},
		},
		Lap: &model.Unit{Value: 400, Unit: "m"},
	}
}

func TestAdapter(t *testing.T) {
	Convey("Given an adapter over the builtin objectives", t, func() {
		reg := objective.NewRegistry()
		So(objective.RegisterBuiltins(reg), ShouldBeNil)
		adapter := persistence.NewAdapter(reg)

		sync, err := objective.NewSynchronicity(objective.SynchronicityConfig{TargetIntervalSeconds: 1, TolerancePercent: 5})
		So(err, ShouldBeNil)

		for _, obj := range []objective.Objective{objective.NewUnitAccumulation(), objective.NewTimeMinimization(), sync} {
			sw := persistence.Stopwatch{
				ID:         "sw-1",
				Annotation: model.Annotation{Title: "Track", Description: "400m repeats"},
				Core:       sample(),
				Metadata:   model.Metadata{Creation: at(0), LastModification: at(2000)},
				Objective:  obj,
			}

			Convey("A stopwatch with "+obj.Type()+" should survive a JSON round trip", func() {
				rec, err := adapter.ToPersistent(sw)
				So(err, ShouldBeNil)
				So(rec.Objective.Type, ShouldEqual, obj.Type())

				raw, err := json.Marshal(rec)
				So(err, ShouldBeNil)
				var decoded persistence.Record
				So(json.Unmarshal(raw, &decoded), ShouldBeNil)

				back, err := adapter.FromPersistent(decoded)
				So(err, ShouldBeNil)
				So(back.ID, ShouldEqual, sw.ID)
				So(back.Annotation, ShouldResemble, sw.Annotation)
				So(back.Core.Lap, ShouldResemble, sw.Core.Lap)
				So(len(back.Core.Sequence), ShouldEqual, 3)
				So(back.Objective.Type(), ShouldEqual, obj.Type())
				So(back.Objective.Evaluate(back.Core), ShouldEqual, obj.Evaluate(sw.Core))

				other := model.Core{Sequence: sw.Core.Sequence[:2]}
				So(back.Objective.Compare(back.Core, other), ShouldEqual, obj.Compare(sw.Core, other))
			})
		}

		Convey("The stored core should not alias the runtime core", func() {
			sw := persistence.Stopwatch{ID: "sw-2", Core: sample()}
			rec, err := adapter.ToPersistent(sw)
			So(err, ShouldBeNil)
			rec.Core.Sequence[1].Unit.Value = 99
			So(sw.Core.Sequence[1].Unit.Value, ShouldEqual, 5)
		})

		Convey("A stopwatch without an objective should omit the field", func() {
			rec, err := adapter.ToPersistent(persistence.Stopwatch{ID: "sw-3"})
			So(err, ShouldBeNil)
			raw, err := json.Marshal(rec)
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, `"objective"`)

			back, err := adapter.FromPersistent(rec)
			So(err, ShouldBeNil)
			So(back.Objective, ShouldBeNil)
		})

		Convey("An unregistered objective tag should fail to load", func() {
			_, err := adapter.FromPersistent(persistence.Record{ID: "sw-4", Objective: &registry.Record{Type: "bogus"}})
			So(errors.Is(err, registry.ErrUnregistered), ShouldBeTrue)
		})

		Convey("A record without id should be rejected", func() {
			_, err := adapter.FromPersistent(persistence.Record{})
			So(errors.Is(err, persistence.ErrMissingID), ShouldBeTrue)
		})
	})
}
