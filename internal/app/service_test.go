package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/slumber/internal/app"
	"github.com/okian/slumber/internal/adapters/cache"
	"github.com/okian/slumber/internal/adapters/repository"
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/model"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/internal/domain/scoring"
	"github.com/okian/slumber/internal/domain/tips"
	"github.com/okian/slumber/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func goodRecord() habit.Record {
	return habit.Record{
		SleepDuration:    "8",
		Bedtime:          "22:30",
		WakeTime:         "06:30",
		Caffeine:         "None",
		ExerciseDuration: "45",
		ScreenTime:       "10",
		StressLevel:      "2",
		Mood:             "Happy",
		Interruptions:    "No",
	}
}

func poorRecord() habit.Record {
	return habit.Record{
		SleepDuration:    "4.5",
		Bedtime:          "02:00",
		WakeTime:         "06:30",
		Caffeine:         "High",
		ExerciseDuration: "0",
		ScreenTime:       "120",
		StressLevel:      "9",
		Mood:             "Anxious",
		Interruptions:    "Yes",
	}
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, habit.Habit) (scoring.Result, error) {
	return scoring.Result{}, errors.New("model offline")
}

// blockingStore holds every Save until release is closed.
type blockingStore struct {
	repository.Store
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) Save(ctx context.Context, p model.Prediction) error {
	<-b.release
	return b.Store.Save(ctx, p)
}

func (b *blockingStore) unblock() { b.once.Do(func() { close(b.release) }) }

// slowCache holds every Len until release is closed, like a Redis SCAN
// over a large key space.
type slowCache struct {
	cache.Cache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *slowCache) Len(ctx context.Context) int64 {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	return c.Cache.Len(ctx)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(16))
		ctx := context.Background()

		Convey("When it has not been started", func() {
			stats := svc.GetStats(ctx)

			Convey("Then stats report it stopped", func() {
				So(stats.Started, ShouldBeFalse)
				So(stats.WorkerCount, ShouldEqual, 2)
				So(stats.QueueCapacity, ShouldEqual, 16)
			})
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats(ctx).Started, ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it cannot be restarted", func() {
				So(svc.GetStats(ctx).Started, ShouldBeFalse)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Predict(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When habits are ideal", func() {
			p, err := svc.Predict(ctx, goodRecord())

			Convey("Then the prediction is Good with the keep-up tip", func() {
				So(err, ShouldBeNil)
				So(p.Quality, ShouldEqual, quality.Good)
				So(p.Score, ShouldEqual, scoring.MaxScore)
				So(p.Tips, ShouldResemble, []string{tips.KeepItUp})
				So(p.Factors, ShouldResemble, []string{
					scoring.FactorIdealSleep, scoring.FactorLowCaffeine, scoring.FactorExercise,
					scoring.FactorLowScreen, scoring.FactorLowStress, scoring.FactorHappyMood,
					scoring.FactorUnbroken,
				})
				So(p.ID, ShouldNotBeEmpty)
				So(p.Record, ShouldResemble, goodRecord())
			})
		})

		Convey("When sleep is 7 hours with low stress and a happy mood", func() {
			r := goodRecord()
			r.SleepDuration = "7"
			r.StressLevel = "3"
			p, err := svc.Predict(ctx, r)

			Convey("Then the prediction is Good", func() {
				So(err, ShouldBeNil)
				So(p.Quality, ShouldEqual, quality.Good)
			})
		})

		Convey("When no tip rule fires but the score is only Average", func() {
			r := habit.Record{
				SleepDuration:    "7",
				Bedtime:          "23:00",
				WakeTime:         "06:00",
				Caffeine:         "None",
				ExerciseDuration: "10",
				ScreenTime:       "45",
				StressLevel:      "5",
				Mood:             "Neutral",
				Interruptions:    "Yes",
			}
			p, err := svc.Predict(ctx, r)

			Convey("Then the keep-up tip is returned", func() {
				So(err, ShouldBeNil)
				So(p.Quality, ShouldEqual, quality.Average)
				So(p.Score, ShouldEqual, 5)
				So(p.Factors, ShouldResemble, []string{scoring.FactorIdealSleep, scoring.FactorLowCaffeine})
				So(p.Tips, ShouldResemble, []string{tips.KeepItUp})
			})
		})

		Convey("When a cached prediction is served", func() {
			first, err := svc.Predict(ctx, goodRecord())
			So(err, ShouldBeNil)
			second, err := svc.Predict(ctx, goodRecord())
			So(err, ShouldBeNil)

			Convey("Then the factors survive the cache", func() {
				So(second.Factors, ShouldResemble, first.Factors)
			})
		})

		Convey("When habits are poor", func() {
			p, err := svc.Predict(ctx, poorRecord())

			Convey("Then tips arrive in rule order", func() {
				So(err, ShouldBeNil)
				So(p.Quality, ShouldEqual, quality.Poor)
				So(p.Tips, ShouldResemble, []string{tips.MoreSleep, tips.LessCaffeine, tips.LessScreen, tips.LowerStress})
			})
		})

		Convey("When a field is invalid", func() {
			r := goodRecord()
			r.Caffeine = "Lots"
			_, err := svc.Predict(ctx, r)

			Convey("Then a field error with the public message is returned", func() {
				var fe *habit.FieldError
				So(errors.As(err, &fe), ShouldBeTrue)
				So(fe.Public(), ShouldEqual, "Invalid caffeine value")
			})
		})

		Convey("When the same habits are submitted twice in different spellings", func() {
			first, err := svc.Predict(ctx, goodRecord())
			So(err, ShouldBeNil)
			r := goodRecord()
			r.SleepDuration = "8.0"
			r.Mood = "happy"
			second, err := svc.Predict(ctx, r)
			So(err, ShouldBeNil)

			Convey("Then the second is served from cache under a new id", func() {
				stats := svc.GetStats(ctx)
				So(stats.CacheHits, ShouldEqual, 1)
				So(stats.CacheMisses, ShouldEqual, 1)
				So(stats.Predictions, ShouldEqual, 2)
				So(stats.ByQuality["Good"], ShouldEqual, 2)
				So(second.Quality, ShouldEqual, first.Quality)
				So(second.ID, ShouldNotEqual, first.ID)
			})
		})
	})

	Convey("Given a service whose scorer fails", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithScorer(failingScorer{}))

		Convey("Then Predict reports an internal failure", func() {
			_, err := svc.Predict(ctx, goodRecord())
			So(errors.Is(err, service.ErrScoringFailed), ShouldBeTrue)
			var fe *habit.FieldError
			So(errors.As(err, &fe), ShouldBeFalse)
		})
	})
}

func TestService_History(t *testing.T) {
	Convey("Given a service with a single writer and a clock", t, func() {
		ctx := context.Background()
		store := repository.NewRingStore(ctx)
		tick := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
		svc := service.New(
			service.WithStore(store),
			service.WithWorkerCount(1),
			service.WithMaxHistoryLimit(2),
			service.WithClock(func() time.Time {
				tick = tick.Add(time.Minute)
				return tick
			}),
		)
		So(svc.Start(ctx), ShouldBeNil)

		var ids []string
		for _, r := range []habit.Record{goodRecord(), poorRecord(), goodRecord()} {
			p, err := svc.Predict(ctx, r)
			So(err, ShouldBeNil)
			ids = append(ids, p.ID)
		}
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("Then every prediction was persisted before stop returned", func() {
			So(store.Count(ctx), ShouldEqual, 3)
			got, err := svc.Get(ctx, ids[1])
			So(err, ShouldBeNil)
			So(got.Quality, ShouldEqual, quality.Poor)
			So(got.CreatedAt.Equal(time.Date(2026, 5, 1, 22, 2, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("And Recent is capped and newest first", func() {
			list, err := svc.Recent(ctx, 10)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 2)
			So(list[0].ID, ShouldEqual, ids[2])
			So(list[1].ID, ShouldEqual, ids[1])
		})

		Convey("And unknown ids and bad limits are rejected", func() {
			_, err := svc.Get(ctx, "missing")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			_, err = svc.Recent(ctx, 0)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
		})
	})

	Convey("Given a saturated history queue", t, func() {
		ctx := context.Background()
		store := &blockingStore{Store: repository.NewRingStore(ctx), release: make(chan struct{})}
		svc := service.New(service.WithStore(store), service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)

		var errs []error
		for i := 0; i < 4; i++ {
			_, err := svc.Predict(ctx, goodRecord())
			errs = append(errs, err)
		}
		dropped := svc.GetStats(ctx).HistoryDropped
		store.unblock()
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("Then predictions still succeed while history writes are dropped", func() {
			for _, err := range errs {
				So(err, ShouldBeNil)
			}
			So(dropped, ShouldBeGreaterThanOrEqualTo, 2)
			So(store.Count(ctx), ShouldEqual, 4-int(dropped))
		})
	})
}

func TestService_StatsWithSlowCache(t *testing.T) {
	Convey("Given a started service whose cache is slow to count", t, func() {
		ctx := context.Background()
		slow := &slowCache{Cache: cache.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
		svc := service.New(service.WithCache(slow), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.Predict(ctx, goodRecord())
		So(err, ShouldBeNil)

		statsDone := make(chan service.Stats, 1)
		go func() { statsDone <- svc.GetStats(ctx) }()
		select {
		case <-slow.entered:
		case <-time.After(2 * time.Second):
			So("cache was never counted", ShouldBeEmpty)
		}

		Convey("When the service is stopped while the count is pending", func() {
			stopped := make(chan error, 1)
			go func() { stopped <- svc.Stop(ctx) }()

			Convey("Then stop does not wait for the cache", func() {
				select {
				case err := <-stopped:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("stop blocked behind GetStats", ShouldBeEmpty)
				}
				close(slow.release)
				stats := <-statsDone
				So(stats.CacheEntries, ShouldEqual, 1)
				So(stats.Predictions, ShouldEqual, 1)
			})
		})
	})
}
