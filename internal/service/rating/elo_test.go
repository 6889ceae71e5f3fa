package rating_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
	rating "github.com/zhouzirui/mockview/backend/internal/service/rating"
)

func TestCompute(t *testing.T) {
	Convey("Given the ELO update rule", t, func() {
		Convey("When a baseline candidate wins a medium interview", func() {
			u, err := rating.Compute(1200, 80, model.Medium)

			Convey("Then the rating rises by the expected-vs-outcome gap", func() {
				So(err, ShouldBeNil)
				So(u.Benchmark, ShouldEqual, 1400)
				So(u.K, ShouldEqual, 32)
				So(u.Outcome, ShouldEqual, model.Win)
				So(u.Expected, ShouldAlmostEqual, 0.2403, 0.0001)
				So(u.NewRating, ShouldEqual, 1224)
				So(u.Delta, ShouldEqual, 24)
			})
		})

		Convey("When a high-rated candidate loses a hard interview", func() {
			u, err := rating.Compute(1600, 40, model.Hard)

			Convey("Then the slower K-factor limits the drop", func() {
				So(err, ShouldBeNil)
				So(u.K, ShouldEqual, 16)
				So(u.Outcome, ShouldEqual, model.Loss)
				So(u.NewRating, ShouldEqual, 1596)
				So(u.Delta, ShouldEqual, -4)
			})
		})

		Convey("When a low-rated candidate draws an easy interview", func() {
			u, err := rating.Compute(900, 60, model.Easy)

			Convey("Then the faster K-factor applies to the draw", func() {
				So(err, ShouldBeNil)
				So(u.K, ShouldEqual, 40)
				So(u.Outcome, ShouldEqual, model.Draw)
				So(u.Expected, ShouldAlmostEqual, 0.3599, 0.0001)
				So(u.NewRating, ShouldEqual, 906)
			})
		})

		Convey("When the difficulty is unknown", func() {
			_, err := rating.Compute(1200, 80, model.Difficulty("extreme"))

			Convey("Then it fails with an invalid argument", func() {
				So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When the score is outside 0-100", func() {
			_, errHigh := rating.Compute(1200, 100.5, model.Easy)
			_, errLow := rating.Compute(1200, -1, model.Easy)

			Convey("Then it fails with an invalid argument", func() {
				So(errors.Is(errHigh, errs.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(errLow, errs.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When the inputs repeat", func() {
			a, _ := rating.UpdateRating(1337, 66, model.Hard)
			b, _ := rating.UpdateRating(1337, 66, model.Hard)

			Convey("Then the result is identical", func() {
				So(a, ShouldEqual, b)
			})
		})
	})
}

func TestDirectionOfChange(t *testing.T) {
	Convey("Given every difficulty tier", t, func() {
		for _, d := range []model.Difficulty{model.Easy, model.Medium, model.Hard} {
			benchmark, err := rating.Benchmark(d)
			So(err, ShouldBeNil)

			Convey("A win below the benchmark raises the rating for "+string(d), func() {
				below := benchmark - 150
				next, err := rating.UpdateRating(below, 90, d)
				So(err, ShouldBeNil)
				So(next, ShouldBeGreaterThan, below)
			})

			Convey("A loss above the benchmark lowers the rating for "+string(d), func() {
				above := benchmark + 150
				next, err := rating.UpdateRating(above, 10, d)
				So(err, ShouldBeNil)
				So(next, ShouldBeLessThan, above)
			})
		}
	})
}

func TestTieredKFactor(t *testing.T) {
	Convey("Given ratings around the tier boundaries", t, func() {
		Convey("Then K shrinks with rating", func() {
			So(rating.KFactor(999), ShouldEqual, 40)
			So(rating.KFactor(1000), ShouldEqual, 32)
			So(rating.KFactor(1500), ShouldEqual, 32)
			So(rating.KFactor(1501), ShouldEqual, 16)
		})

		Convey("Then a high-rated win moves less than a mid-rated one", func() {
			mid, _ := rating.Compute(1500, 90, model.Hard)
			high, _ := rating.Compute(1501, 90, model.Hard)
			So(abs(high.Delta), ShouldBeLessThan, abs(mid.Delta))
		})

		Convey("Then a mid-rated win moves less than a low-rated one", func() {
			mid, _ := rating.Compute(1000, 90, model.Easy)
			low, _ := rating.Compute(999, 90, model.Easy)
			So(abs(mid.Delta), ShouldBeLessThan, abs(low.Delta))
		})
	})
}

func TestClassifyThresholds(t *testing.T) {
	Convey("Given scores at the outcome boundaries", t, func() {
		cases := []struct {
			score float64
			want  model.Outcome
			value float64
		}{
			{100, model.Win, 1},
			{75, model.Win, 1},
			{74.99, model.Draw, 0.5},
			{50, model.Draw, 0.5},
			{49.99, model.Loss, 0},
			{0, model.Loss, 0},
		}
		for _, tc := range cases {
			outcome, value := rating.Classify(tc.score)
			So(outcome, ShouldEqual, tc.want)
			So(value, ShouldEqual, tc.value)
		}
	})
}

func TestParseDifficulty(t *testing.T) {
	Convey("Given raw difficulty strings", t, func() {
		Convey("Then known tiers are normalized", func() {
			d, err := rating.ParseDifficulty(" Hard ")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, model.Hard)
		})

		Convey("Then unknown tiers are rejected instead of defaulted", func() {
			_, err := rating.ParseDifficulty("")
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			_, err = rating.ParseDifficulty("expert")
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
