package epoch_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/epochboard/internal/domain/epoch"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseCadence(t *testing.T) {
	Convey("Given textual cadences", t, func() {
		Convey("Known values parse case-insensitively", func() {
			for in, want := range map[string]epoch.Cadence{
				"daily": epoch.Daily, " Weekly ": epoch.Weekly, "MONTHLY": epoch.Monthly, "none": epoch.None,
			} {
				got, err := epoch.ParseCadence(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Empty input means the leaderboard never resets", func() {
			got, err := epoch.ParseCadence("")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, epoch.None)
			So(got.Resets(), ShouldBeFalse)
		})

		Convey("Unknown values fail with InvalidCadence", func() {
			_, err := epoch.ParseCadence("hourly")
			So(errors.Is(err, epoch.ErrInvalidCadence), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "hourly")
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("connection refused")

		Convey("Kinds and causes are both reachable", func() {
			err := epoch.WrapKind("repository.epoch", epoch.ErrStoreUnavailable, cause)
			So(errors.Is(err, epoch.ErrStoreUnavailable), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, epoch.ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "repository.epoch: store unavailable: connection refused")

			var opErr *epoch.Error
			So(errors.As(err, &opErr), ShouldBeTrue)
			So(opErr.Op, ShouldEqual, "repository.epoch")
		})

		Convey("A kind without a cause formats without a trailing part", func() {
			err := epoch.NewKind("period.start", epoch.ErrInvalidCadence)
			So(err.Error(), ShouldEqual, "period.start: invalid cadence")
			So(errors.Is(err, epoch.ErrInvalidCadence), ShouldBeTrue)
		})

		Convey("Wrapping nil yields nil", func() {
			So(epoch.WrapKind("op", epoch.ErrReapFailure, nil), ShouldBeNil)
		})
	})
}

func TestStatic(t *testing.T) {
	Convey("A static leaderboard is always version one with no period", t, func() {
		r := epoch.Static()
		So(r.Version, ShouldEqual, epoch.FirstVersion)
		So(r.PeriodStart, ShouldBeNil)
		So(r.NextReset, ShouldBeNil)
	})

	Convey("TimePtr normalizes to UTC", t, func() {
		at := time.Date(2026, 2, 9, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
		p := epoch.TimePtr(at)
		So(p.Location(), ShouldEqual, time.UTC)
		So(p.Equal(at), ShouldBeTrue)
	})
}
