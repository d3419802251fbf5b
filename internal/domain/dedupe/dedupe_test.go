package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/okian/stopwatch/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is new", func() {
			seen := d.SeenAndRecord(ctx, "key-1")

			Convey("Then it should return false and record the key", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key was already seen", func() {
			d.SeenAndRecord(ctx, "key-1")
			seen := d.SeenAndRecord(ctx, "key-1")

			Convey("Then it should return true without growing", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, "key-1")
			d.Unrecord(ctx, "key-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "key-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown key", func() {
			d.SeenAndRecord(ctx, "key-1")
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("When recording empty and very long keys", func() {
			long := strings.Repeat("k", 4096)
			So(d.SeenAndRecord(ctx, ""), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, long), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, ""), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, long), ShouldBeTrue)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
		}

		Convey("When one more key arrives", func() {
			So(d.SeenAndRecord(ctx, "key-4"), ShouldBeFalse)

			Convey("Then the oldest key should be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "key-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "key-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "key-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a non-positive max size", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

		Convey("Then the default bound should apply", func() {
			for i := 0; i < dedupe.DefaultMaxSize+10; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", i))
			}
			So(d.Size(), ShouldEqual, dedupe.DefaultMaxSize)
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When many goroutines race on the same keys", func() {
			const workers, keys = 8, 100
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for k := 0; k < keys; k++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("key-%d", k)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key should be fresh exactly once", func() {
				So(fresh, ShouldEqual, keys)
				So(d.Size(), ShouldEqual, keys)
			})
		})
	})
}
