package objective_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(t model.EventType, ms int64, unit float64) model.Event {
	e := model.Event{Type: t, Timestamp: timestamp.FromMillis(ms, time.UTC)}
	if unit != 0 {
		e.Unit = &model.Unit{Value: unit}
	}
	return e
}

func core(events ...model.Event) model.Core {
	return model.Core{Sequence: events}
}

func TestUnitAccumulation(t *testing.T) {
	Convey("Given the unit-accumulation objective", t, func() {
		o := objective.NewUnitAccumulation()

		Convey("It should sum units on splits and stops", func() {
			c := core(ev(model.TypeStart, 0, 0), ev(model.TypeSplit, 10, 5), ev(model.TypeStop, 20, 3))
			So(o.Evaluate(c), ShouldEqual, 8)
		})

		Convey("It should ignore units on other event types", func() {
			c := core(ev(model.TypeStart, 0, 7), ev(model.TypeMilestone, 10, 9), ev(model.TypeStop, 20, 1))
			So(o.Evaluate(c), ShouldEqual, 1)
		})

		Convey("It should rank higher totals first", func() {
			a := core(ev(model.TypeStart, 0, 0), ev(model.TypeSplit, 10, 10))
			b := core(ev(model.TypeStart, 0, 0), ev(model.TypeSplit, 10, 4))
			So(o.Compare(a, b), ShouldBeGreaterThan, 0)
			So(o.Compare(b, a), ShouldBeLessThan, 0)
		})
	})
}

func TestTimeMinimization(t *testing.T) {
	Convey("Given the time-minimization objective", t, func() {
		o := objective.NewTimeMinimization()

		Convey("It should negate units on non-start events", func() {
			c := core(ev(model.TypeStart, 0, 100), ev(model.TypeSplit, 10, 4), ev(model.TypeStop, 20, 6))
			So(o.Evaluate(c), ShouldEqual, -10)
		})

		Convey("It should score an empty core as zero", func() {
			So(o.Evaluate(model.Core{}), ShouldEqual, 0)
		})

		Convey("It should rank smaller totals first", func() {
			fast := core(ev(model.TypeStart, 0, 0), ev(model.TypeStop, 10, 2))
			slow := core(ev(model.TypeStart, 0, 0), ev(model.TypeStop, 10, 9))
			So(o.Compare(fast, slow), ShouldBeGreaterThan, 0)
		})
	})
}

func TestSynchronicity(t *testing.T) {
	Convey("Given a synchronicity objective with a one second target", t, func() {
		o, err := objective.NewSynchronicity(objective.SynchronicityConfig{TargetIntervalSeconds: 1, TolerancePercent: 5})
		So(err, ShouldBeNil)

		Convey("Laps exactly on target should score one", func() {
			c := core(ev(model.TypeStart, 0, 0), ev(model.TypeSplit, 1000, 0), ev(model.TypeStop, 2000, 0))
			So(o.Evaluate(c), ShouldEqual, 1)
		})

		Convey("Deviations should lower the score by their mean", func() {
			// laps of 1500ms and 1000ms deviate by 0.5 and 0.
			c := core(ev(model.TypeStart, 0, 0), ev(model.TypeSplit, 1500, 0), ev(model.TypeStop, 2500, 0))
			So(o.Evaluate(c), ShouldAlmostEqual, 0.75, 1e-9)
		})

		Convey("Large deviations should clamp to zero", func() {
			c := core(ev(model.TypeStart, 0, 0), ev(model.TypeStop, 5000, 0))
			So(o.Evaluate(c), ShouldEqual, 0)
		})

		Convey("Pairs that do not form a lap should be skipped", func() {
			c := core(ev(model.TypeStart, 0, 0), ev(model.TypeStop, 1000, 0), ev(model.TypeResume, 9000, 0), ev(model.TypeStop, 10000, 0))
			So(o.Evaluate(c), ShouldEqual, 1)
		})

		Convey("Short or lapless cores should score zero", func() {
			So(o.Evaluate(core(ev(model.TypeStart, 0, 0))), ShouldEqual, 0)
			So(o.Evaluate(core(ev(model.TypeStart, 0, 0), ev(model.TypeMilestone, 1000, 0))), ShouldEqual, 0)
		})
	})

	Convey("Invalid configurations should be rejected", t, func() {
		_, err := objective.NewSynchronicity(objective.SynchronicityConfig{TargetIntervalSeconds: 0, TolerancePercent: 5})
		So(errors.Is(err, objective.ErrInvalidConfiguration), ShouldBeTrue)

		_, err = objective.NewSynchronicity(objective.SynchronicityConfig{TargetIntervalSeconds: 1, TolerancePercent: -1})
		So(errors.Is(err, objective.ErrInvalidConfiguration), ShouldBeTrue)
	})
}

func TestBuiltinRegistry(t *testing.T) {
	Convey("Given a registry with the builtins", t, func() {
		reg := objective.NewRegistry()
		So(objective.RegisterBuiltins(reg), ShouldBeNil)

		Convey("It should list every builtin tag", func() {
			So(reg.Tags(), ShouldResemble, []string{
				objective.TypeSynchronicity,
				objective.TypeTimeMinimization,
				objective.TypeUnitAccumulation,
			})
		})

		Convey("Registering twice should fail", func() {
			So(errors.Is(objective.RegisterBuiltins(reg), registry.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Stateless objectives should round trip by tag", func() {
			for _, o := range []objective.Objective{objective.NewTimeMinimization(), objective.NewUnitAccumulation()} {
				rec, err := reg.Serialize(o)
				So(err, ShouldBeNil)
				So(rec.Type, ShouldEqual, o.Type())

				back, err := reg.Deserialize(rec)
				So(err, ShouldBeNil)
				So(back.Type(), ShouldEqual, o.Type())
			}
		})

		Convey("Synchronicity should round trip its configuration", func() {
			o, err := objective.NewSynchronicity(objective.SynchronicityConfig{TargetIntervalSeconds: 30, TolerancePercent: 2.5})
			So(err, ShouldBeNil)

			rec, err := reg.Serialize(o)
			So(err, ShouldBeNil)
			raw, err := json.Marshal(rec)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"type":"synchronicity","configuration":{"targetIntervalSeconds":30,"tolerancePercent":2.5}}`)

			back, err := reg.Deserialize(rec)
			So(err, ShouldBeNil)
			sync, ok := back.(*objective.Synchronicity)
			So(ok, ShouldBeTrue)
			So(sync.Config(), ShouldResemble, o.Config())
		})

		Convey("Synchronicity without configuration should use defaults", func() {
			back, err := reg.Deserialize(registry.Record{Type: objective.TypeSynchronicity})
			So(err, ShouldBeNil)
			So(back.(*objective.Synchronicity).Config(), ShouldResemble, objective.DefaultSynchronicityConfig())
		})

		Convey("Bad stored configuration should surface a configuration error", func() {
			_, err := reg.Deserialize(registry.Record{
				Type:          objective.TypeSynchronicity,
				Configuration: json.RawMessage(`{"targetIntervalSeconds":-3}`),
			})
			So(errors.Is(err, objective.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})
}
