package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/stopwatch/internal/adapters/repository"
	service "github.com/okian/stopwatch/internal/app"
	"github.com/okian/stopwatch/internal/domain/model"
	"github.com/okian/stopwatch/internal/domain/objective"
	"github.com/okian/stopwatch/internal/domain/persistence"
	"github.com/okian/stopwatch/internal/domain/registry"
	"github.com/okian/stopwatch/internal/domain/state"
	"github.com/okian/stopwatch/internal/domain/timestamp"
	"github.com/okian/stopwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

type manualClock struct{ ms int64 }

func (c *manualClock) Now() timestamp.Timestamp { return timestamp.FromMillis(c.ms, time.UTC) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// flakyStore fails saves on demand.
type flakyStore struct {
	*repository.MemoryStore
	failSave bool
}

func (f *flakyStore) Save(ctx context.Context, rec persistence.Record) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, rec)
}

func newService(clock *manualClock, store repository.Store) *service.Service {
	svc, err := service.New(
		service.WithStore(store),
		service.WithClock(clock.Now),
		service.WithIDGenerator(sequentialIDs()),
	)
	So(err, ShouldBeNil)
	So(svc.Open(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been opened", t, func() {
		svc, err := service.New()
		So(err, ShouldBeNil)

		Convey("Then every operation should report ErrNotOpen", func() {
			_, err := svc.Create(context.Background(), service.CreateInput{Title: "x"})
			So(errors.Is(err, service.ErrNotOpen), ShouldBeTrue)
			_, err = svc.List(context.Background())
			So(errors.Is(err, service.ErrNotOpen), ShouldBeTrue)
		})

		Convey("Then it should expose the builtin objectives", func() {
			So(svc.Objectives(), ShouldContain, objective.TypeUnitAccumulation)
		})

		Convey("Then opening twice and closing twice should be harmless", func() {
			So(svc.Open(context.Background()), ShouldBeNil)
			So(svc.Open(context.Background()), ShouldBeNil)
			So(svc.Close(), ShouldBeNil)
			So(svc.Close(), ShouldBeNil)
		})
	})
}

func TestService_Stopwatches(t *testing.T) {
	Convey("Given an open service", t, func() {
		ctx := context.Background()
		clock := &manualClock{}
		store := repository.NewMemoryStore()
		svc := newService(clock, store)

		sw, err := svc.Create(ctx, service.CreateInput{Title: "Intervals", Lap: &model.Unit{Value: 400, Unit: "m"}})
		So(err, ShouldBeNil)
		id := sw.ID

		Convey("A new stopwatch should be idle and persisted", func() {
			So(sw.Running, ShouldBeFalse)
			So(sw.Active, ShouldBeFalse)
			So(sw.Events, ShouldBeEmpty)
			So(sw.Lap, ShouldResemble, &model.Unit{Value: 400, Unit: "m"})

			rec, err := store.Get(ctx, id)
			So(err, ShouldBeNil)
			So(rec.Annotation.Title, ShouldEqual, "Intervals")
		})

		Convey("Unknown ids should report ErrStopwatchNotFound", func() {
			_, err := svc.Get(ctx, "nope")
			So(errors.Is(err, service.ErrStopwatchNotFound), ShouldBeTrue)
			_, err = svc.Start(ctx, "nope")
			So(errors.Is(err, service.ErrStopwatchNotFound), ShouldBeTrue)
		})

		Convey("When running through start, stop and resume", func() {
			_, err := svc.Start(ctx, id)
			So(err, ShouldBeNil)
			clock.ms = 1000
			_, err = svc.Stop(ctx, id)
			So(err, ShouldBeNil)
			clock.ms = 3000
			_, err = svc.Resume(ctx, id)
			So(err, ShouldBeNil)
			clock.ms = 3500

			got, err := svc.Get(ctx, id)
			So(err, ShouldBeNil)

			Convey("Then the view should reflect the live state", func() {
				So(got.Running, ShouldBeTrue)
				So(got.ElapsedMS, ShouldEqual, 1500)
				So(got.TotalMS, ShouldEqual, 3500)
				So(len(got.Events), ShouldEqual, 3)
				So(got.Intervals, ShouldHaveLength, 2)
				So(got.Metadata.LastModification.UnixMilli(), ShouldEqual, 3000)
			})

			Convey("Then the store should hold the same sequence", func() {
				rec, err := store.Get(ctx, id)
				So(err, ShouldBeNil)
				So(len(rec.Core.Sequence), ShouldEqual, 3)
				So(rec.Core.Sequence[2].Type, ShouldEqual, model.TypeResume)
			})

			Convey("Then an invalid transition should fail without persisting", func() {
				_, err := svc.Start(ctx, id)
				So(errors.Is(err, state.ErrStartWhileRunning), ShouldBeTrue)
				So(errors.Is(err, state.ErrInvalidTransition), ShouldBeTrue)
				rec, _ := store.Get(ctx, id)
				So(len(rec.Core.Sequence), ShouldEqual, 3)
			})

			Convey("Then measurements between events should resolve", func() {
				events := got.Events
				m, err := svc.Elapsed(ctx, id, events[0].ID, events[2].ID)
				So(err, ShouldBeNil)
				So(m.Known, ShouldBeTrue)
				So(m.MS, ShouldEqual, 1000)

				m, err = svc.Duration(ctx, id, events[0].ID, events[2].ID)
				So(err, ShouldBeNil)
				So(m.MS, ShouldEqual, 3000)

				m, err = svc.Duration(ctx, id, "", "")
				So(err, ShouldBeNil)
				So(m.MS, ShouldEqual, 3500)

				m, err = svc.Elapsed(ctx, id, "missing", "")
				So(err, ShouldBeNil)
				So(m.Known, ShouldBeFalse)
				So(m.MS, ShouldEqual, -1)
			})

			Convey("Then reset should clear events and keep the lap", func() {
				sw, err := svc.Reset(ctx, id)
				So(err, ShouldBeNil)
				So(sw.Events, ShouldBeEmpty)
				So(sw.Lap, ShouldNotBeNil)
				So(sw.Metadata.LastModification.UnixMilli(), ShouldEqual, 3500)
			})
		})

		Convey("When adding and removing events", func() {
			_, err := svc.Start(ctx, id)
			So(err, ShouldBeNil)
			clock.ms = 2000
			ev, err := svc.AddEvent(ctx, id, service.EventInput{Type: model.TypeSplit, Title: "lap 1", Unit: &model.Unit{Value: 5}})
			So(err, ShouldBeNil)
			So(ev.Timestamp.UnixMilli(), ShouldEqual, 2000)

			Convey("Then explicit timestamps should be kept", func() {
				at := timestamp.FromMillis(2500, time.UTC)
				ev, err := svc.AddEvent(ctx, id, service.EventInput{Type: model.TypeMilestone, Timestamp: &at})
				So(err, ShouldBeNil)
				So(ev.Timestamp.UnixMilli(), ShouldEqual, 2500)
			})

			Convey("Then transition types should be refused", func() {
				_, err := svc.AddEvent(ctx, id, service.EventInput{Type: model.TypeStop})
				So(errors.Is(err, service.ErrTransitionEvent), ShouldBeTrue)
			})

			Convey("Then unknown types should be refused", func() {
				_, err := svc.AddEvent(ctx, id, service.EventInput{Type: "bogus"})
				So(errors.Is(err, state.ErrUnknownEventType), ShouldBeTrue)
			})

			Convey("Then removing the split should update derived values", func() {
				sw, err := svc.RemoveEvent(ctx, id, ev.ID)
				So(err, ShouldBeNil)
				So(len(sw.Events), ShouldEqual, 1)

				_, err = svc.RemoveEvent(ctx, id, ev.ID)
				So(errors.Is(err, service.ErrEventNotFound), ShouldBeTrue)
			})
		})

		Convey("When deleting the stopwatch", func() {
			So(svc.Delete(ctx, id), ShouldBeNil)

			Convey("Then it should be gone everywhere", func() {
				_, err := svc.Get(ctx, id)
				So(errors.Is(err, service.ErrStopwatchNotFound), ShouldBeTrue)
				_, err = store.Get(ctx, id)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(svc.Delete(ctx, id), service.ErrStopwatchNotFound), ShouldBeTrue)
			})
		})

		Convey("List should order by creation", func() {
			clock.ms = 10
			second, err := svc.Create(ctx, service.CreateInput{Title: "Second"})
			So(err, ShouldBeNil)
			all, err := svc.List(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
			So(all[0].ID, ShouldEqual, id)
			So(all[1].ID, ShouldEqual, second.ID)
		})
	})
}

func TestService_Persistence(t *testing.T) {
	Convey("Given a store holding stopwatches written by an earlier service", t, func() {
		ctx := context.Background()
		clock := &manualClock{}
		store := repository.NewMemoryStore()
		first := newService(clock, store)

		sync, _ := json.Marshal(objective.SynchronicityConfig{TargetIntervalSeconds: 1, TolerancePercent: 5})
		sw, err := first.Create(ctx, service.CreateInput{
			Title:     "Rhythm",
			Objective: &registry.Record{Type: objective.TypeSynchronicity, Configuration: sync},
		})
		So(err, ShouldBeNil)
		_, err = first.Start(ctx, sw.ID)
		So(err, ShouldBeNil)
		clock.ms = 1000
		_, err = first.AddEvent(ctx, sw.ID, service.EventInput{Type: model.TypeSplit})
		So(err, ShouldBeNil)

		So(store.Save(ctx, persistence.Record{ID: "broken", Objective: &registry.Record{Type: "gone"}}), ShouldBeNil)

		Convey("When a new service starts on the same store", func() {
			second := newService(clock, store)

			Convey("Then it should restore readable stopwatches with their objectives", func() {
				got, err := second.Get(ctx, sw.ID)
				So(err, ShouldBeNil)
				So(got.Running, ShouldBeTrue)
				So(len(got.Events), ShouldEqual, 2)
				So(got.Objective.Type, ShouldEqual, objective.TypeSynchronicity)
				So(got.Objective.Score, ShouldEqual, 1)
				So(string(got.Objective.Configuration), ShouldEqual, string(sync))
			})

			Convey("Then unreadable records should be skipped", func() {
				_, err := second.Get(ctx, "broken")
				So(errors.Is(err, service.ErrStopwatchNotFound), ShouldBeTrue)
				So(errors.Is(err, registry.ErrUnregistered), ShouldBeTrue)
			})
		})

		Convey("When a stopwatch is written to the store after startup", func() {
			second := newService(clock, store)
			late := persistence.Record{ID: "late", Annotation: model.Annotation{Title: "late"}}
			So(store.Save(ctx, late), ShouldBeNil)

			Convey("Then it should be read through on first access", func() {
				got, err := second.Get(ctx, "late")
				So(err, ShouldBeNil)
				So(got.Annotation.Title, ShouldEqual, "late")
				_, err = second.Start(ctx, "late")
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a sqlite store with one undecodable row", t, func() {
		ctx := context.Background()
		clock := &manualClock{}
		path := filepath.Join(t.TempDir(), "corrupt.db")
		store, err := repository.NewSQLiteStore(path)
		So(err, ShouldBeNil)
		first := newService(clock, store)
		sw, err := first.Create(ctx, service.CreateInput{Title: "survivor"})
		So(err, ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		db, err := sql.Open("sqlite", path)
		So(err, ShouldBeNil)
		_, err = db.Exec(`INSERT INTO stopwatches (id, title, data, created_ms, updated_ms) VALUES ('bad', '', '{not json', 5, 5)`)
		So(err, ShouldBeNil)
		So(db.Close(), ShouldBeNil)

		Convey("When a service opens it", func() {
			reopened, err := repository.NewSQLiteStore(path)
			So(err, ShouldBeNil)
			second := newService(clock, reopened)
			defer second.Close()

			Convey("Then the readable stopwatch should still load", func() {
				all, err := second.List(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
				So(all[0].ID, ShouldEqual, sw.ID)

				_, err = second.Get(ctx, "bad")
				So(errors.Is(err, service.ErrStopwatchNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a store that starts failing", t, func() {
		ctx := context.Background()
		clock := &manualClock{}
		store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		svc := newService(clock, store)
		sw, err := svc.Create(ctx, service.CreateInput{Title: "Fragile"})
		So(err, ShouldBeNil)

		store.failSave = true

		Convey("Then a mutation should fail and leave the stopwatch unchanged", func() {
			clock.ms = 500
			_, err := svc.Start(ctx, sw.ID)
			So(err, ShouldNotBeNil)

			got, err := svc.Get(ctx, sw.ID)
			So(err, ShouldBeNil)
			So(got.Running, ShouldBeFalse)
			So(got.Events, ShouldBeEmpty)
			So(got.Metadata.LastModification.UnixMilli(), ShouldEqual, 0)

			store.failSave = false
			_, err = svc.Start(ctx, sw.ID)
			So(err, ShouldBeNil)
		})

		Convey("Then creation should fail without registering the stopwatch", func() {
			_, err := svc.Create(ctx, service.CreateInput{Title: "Lost"})
			So(err, ShouldNotBeNil)
			all, _ := svc.List(ctx)
			So(len(all), ShouldEqual, 1)
		})
	})
}

func TestService_Objectives(t *testing.T) {
	Convey("Given stopwatches with unit-accumulation objectives", t, func() {
		ctx := context.Background()
		clock := &manualClock{}
		svc := newService(clock, repository.NewMemoryStore())
		accumulate := registry.Record{Type: objective.TypeUnitAccumulation}

		mk := func(title string, units ...float64) string {
			sw, err := svc.Create(ctx, service.CreateInput{Title: title, Objective: &accumulate})
			So(err, ShouldBeNil)
			_, err = svc.Start(ctx, sw.ID)
			So(err, ShouldBeNil)
			for _, u := range units {
				clock.ms += 100
				_, err = svc.AddEvent(ctx, sw.ID, service.EventInput{Type: model.TypeSplit, Unit: &model.Unit{Value: u}})
				So(err, ShouldBeNil)
			}
			return sw.ID
		}
		low := mk("low", 1)
		high := mk("high", 5, 3)
		mid := mk("mid", 4)

		plain, err := svc.Create(ctx, service.CreateInput{Title: "plain"})
		So(err, ShouldBeNil)

		Convey("The leaderboard should rank by the objective", func() {
			entries, err := svc.Leaderboard(ctx, objective.TypeUnitAccumulation, 10)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].StopwatchID, ShouldEqual, high)
			So(entries[0].Score, ShouldEqual, 8)
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[1].StopwatchID, ShouldEqual, mid)
			So(entries[2].StopwatchID, ShouldEqual, low)
		})

		Convey("The limit should truncate the board", func() {
			entries, err := svc.Leaderboard(ctx, objective.TypeUnitAccumulation, 1)
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)

			_, err = svc.Leaderboard(ctx, objective.TypeUnitAccumulation, 0)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Setting and clearing objectives should move stopwatches on and off the board", func() {
			sw, err := svc.SetObjective(ctx, plain.ID, accumulate)
			So(err, ShouldBeNil)
			So(sw.Objective.Type, ShouldEqual, objective.TypeUnitAccumulation)

			entries, _ := svc.Leaderboard(ctx, objective.TypeUnitAccumulation, 10)
			So(len(entries), ShouldEqual, 4)

			sw, err = svc.ClearObjective(ctx, high)
			So(err, ShouldBeNil)
			So(sw.Objective, ShouldBeNil)

			entries, _ = svc.Leaderboard(ctx, objective.TypeUnitAccumulation, 10)
			So(len(entries), ShouldEqual, 3)
			So(entries[0].StopwatchID, ShouldEqual, mid)
		})

		Convey("Unknown objectives should be rejected", func() {
			_, err := svc.SetObjective(ctx, plain.ID, registry.Record{Type: "bogus"})
			So(errors.Is(err, registry.ErrUnregistered), ShouldBeTrue)

			_, err = svc.SetObjective(ctx, plain.ID, registry.Record{
				Type:          objective.TypeSynchronicity,
				Configuration: json.RawMessage(`{"targetIntervalSeconds":0}`),
			})
			So(errors.Is(err, objective.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})
}
