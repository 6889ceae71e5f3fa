package rating_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zhouzirui/mockview/backend/internal/errs"
	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
	repo "github.com/zhouzirui/mockview/backend/internal/repository/rating"
	rating "github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

type flakyRepo struct {
	*repo.MemoryRepository
	saveErr    error
	historyErr error
}

func (f *flakyRepo) Save(ctx context.Context, rec model.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryRepository.Save(ctx, rec)
}

func (f *flakyRepo) AppendHistory(ctx context.Context, e model.HistoryEntry) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	return f.MemoryRepository.AppendHistory(ctx, e)
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestServiceApply(t *testing.T) {
	Convey("Given a rating service over an empty repository", t, func() {
		ctx := context.Background()
		store := &flakyRepo{MemoryRepository: repo.NewMemoryRepository()}
		svc := rating.NewService(store, rating.WithClock(fixedClock()), rating.WithLogger(logger.Nop()))

		Convey("When an unseen subject is rated", func() {
			res, err := svc.Apply(ctx, "ada@example.com", 80, model.Medium, "backend")
			explicit, _ := rating.UpdateRating(rating.BaselineRating, 80, model.Medium)

			Convey("Then the baseline is used as the starting rating", func() {
				So(err, ShouldBeNil)
				So(res.OldRating, ShouldEqual, 1200)
				So(res.NewRating, ShouldEqual, explicit)
				So(res.Delta, ShouldEqual, explicit-1200)
				So(res.HistoryRecorded, ShouldBeTrue)
				So(res.Timestamp, ShouldEqual, fixedClock()())
			})

			Convey("Then the new rating and a history entry are stored", func() {
				rec, err := svc.Current(ctx, "ada@example.com")
				So(err, ShouldBeNil)
				So(rec.Rating, ShouldEqual, 1224)

				points, err := svc.History(ctx, "ada@example.com", 0)
				So(err, ShouldBeNil)
				So(len(points), ShouldEqual, 1)
				So(points[0].Score, ShouldEqual, 80)
				So(points[0].Rating, ShouldEqual, 1224)
			})
		})

		Convey("When updates chain", func() {
			first, _ := svc.Apply(ctx, "bob", 90, model.Hard, "")
			second, err := svc.Apply(ctx, "bob", 20, model.Easy, "")

			Convey("Then each update starts from the previous result", func() {
				So(err, ShouldBeNil)
				So(second.OldRating, ShouldEqual, first.NewRating)
			})
		})

		Convey("When the rating write fails", func() {
			store.saveErr = errors.New("connection reset")
			_, err := svc.Apply(ctx, "carol", 80, model.Medium, "")

			Convey("Then the update is reported as a failure", func() {
				So(err, ShouldNotBeNil)
				points, _ := svc.History(ctx, "carol", 0)
				So(len(points), ShouldEqual, 0)
			})
		})

		Convey("When only the history write fails", func() {
			store.historyErr = errors.New("history table locked")
			res, err := svc.Apply(ctx, "dave", 80, model.Medium, "")

			Convey("Then the rating result survives with a partial-success flag", func() {
				So(err, ShouldBeNil)
				So(res.NewRating, ShouldEqual, 1224)
				So(res.HistoryRecorded, ShouldBeFalse)
				So(res.Warning, ShouldNotBeEmpty)

				rec, _ := svc.Current(ctx, "dave")
				So(rec.Rating, ShouldEqual, 1224)
			})
		})

		Convey("When the subject id is blank", func() {
			_, err := svc.Apply(ctx, "  ", 80, model.Medium, "")

			Convey("Then it is an invalid argument", func() {
				So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When the difficulty is malformed", func() {
			_, err := svc.Apply(ctx, "erin", 80, model.Difficulty("nightmare"), "")

			Convey("Then nothing is stored", func() {
				So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
				_, ok, _ := store.Get(ctx, "erin")
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestServiceReads(t *testing.T) {
	Convey("Given a service with some rated subjects", t, func() {
		ctx := context.Background()
		svc := rating.NewService(repo.NewMemoryRepository(), rating.WithLogger(logger.Nop()))
		for i := 0; i < 4; i++ {
			_, err := svc.Apply(ctx, "ada", 90, model.Hard, "")
			So(err, ShouldBeNil)
		}
		_, err := svc.Apply(ctx, "bob", 10, model.Easy, "")
		So(err, ShouldBeNil)

		Convey("History honors the most-recent cap", func() {
			points, err := svc.History(ctx, "ada", 3)
			So(err, ShouldBeNil)
			So(len(points), ShouldEqual, 3)
			So(points[0].Rating, ShouldBeLessThan, points[2].Rating)
		})

		Convey("History of an unknown subject is empty, not an error", func() {
			points, err := svc.History(ctx, "nobody", 5)
			So(err, ShouldBeNil)
			So(len(points), ShouldEqual, 0)
		})

		Convey("Profile combines rating and history", func() {
			p, err := svc.Profile(ctx, "ada", 2)
			So(err, ShouldBeNil)
			So(p.Record.SubjectID, ShouldEqual, "ada")
			So(len(p.History), ShouldEqual, 2)
			So(p.History[1].Rating, ShouldEqual, p.Record.Rating)
		})

		Convey("Profile of an unseen subject reports the baseline", func() {
			p, err := svc.Profile(ctx, "newcomer", 0)
			So(err, ShouldBeNil)
			So(p.Record.Rating, ShouldEqual, rating.BaselineRating)
			So(len(p.History), ShouldEqual, 0)
		})

		Convey("Leaderboard is ordered by rating", func() {
			top, err := svc.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
			So(top[0].SubjectID, ShouldEqual, "ada")
		})

		Convey("Leaderboard rejects out-of-range limits", func() {
			_, err := svc.Leaderboard(ctx, 0)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.Leaderboard(ctx, 1000)
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

type expiredLocker struct{}

func (expiredLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestServiceApplyLockTimeout(t *testing.T) {
	Convey("Given a subject lock that cannot be acquired in time", t, func() {
		store := repo.NewMemoryRepository()
		svc := rating.NewService(store, rating.WithLogger(logger.Nop()), rating.WithLocker(expiredLocker{}))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := svc.Apply(ctx, "ada", 80, model.Medium, "")

		Convey("Then the failure is an upstream one and nothing is written", func() {
			So(errors.Is(err, errs.ErrUpstream), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			_, ok, getErr := store.Get(context.Background(), "ada")
			So(getErr, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}
