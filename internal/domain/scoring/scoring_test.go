package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// bestHabit earns every point.
func bestHabit() habit.Habit {
	return habit.Habit{
		SleepHours:      8,
		Bedtime:         habit.TimeOfDay{Hour: 22, Minute: 30},
		WakeTime:        habit.TimeOfDay{Hour: 6, Minute: 30},
		Caffeine:        habit.CaffeineNone,
		ExerciseMinutes: 45,
		ScreenMinutes:   10,
		Stress:          2,
		Mood:            habit.MoodHappy,
		Interruptions:   0,
	}
}

// worstHabit earns no points.
func worstHabit() habit.Habit {
	return habit.Habit{
		SleepHours:      4,
		Caffeine:        habit.CaffeineHigh,
		ExerciseMinutes: 0,
		ScreenMinutes:   120,
		Stress:          9,
		Mood:            habit.MoodAnxious,
		Interruptions:   3,
	}
}

func TestRuleScorer_Extremes(t *testing.T) {
	Convey("Given a default rule scorer", t, func() {
		s := scoring.NewRuleScorer()
		ctx := context.Background()

		Convey("When every habit is ideal", func() {
			r, err := s.Score(ctx, bestHabit())

			Convey("Then the score is maximal and quality Good", func() {
				So(err, ShouldBeNil)
				So(r.Score, ShouldEqual, scoring.MaxScore)
				So(r.Quality, ShouldEqual, quality.Good)
				So(r.Factors, ShouldResemble, []string{
					scoring.FactorIdealSleep, scoring.FactorLowCaffeine, scoring.FactorExercise,
					scoring.FactorLowScreen, scoring.FactorLowStress, scoring.FactorHappyMood,
					scoring.FactorUnbroken,
				})
			})
		})

		Convey("When every habit is poor", func() {
			r, err := s.Score(ctx, worstHabit())

			Convey("Then the score is zero and quality Poor", func() {
				So(err, ShouldBeNil)
				So(r.Score, ShouldEqual, 0)
				So(r.Quality, ShouldEqual, quality.Poor)
				So(r.Factors, ShouldBeEmpty)
			})
		})
	})
}

func TestRuleScorer_Boundaries(t *testing.T) {
	Convey("Given a default rule scorer", t, func() {
		s := scoring.NewRuleScorer()
		ctx := context.Background()

		Convey("Then sleep bands are inclusive at 5, 7 and 9 hours", func() {
			for hours, want := range map[float64]int{4.99: 0, 5: 1, 6.9: 1, 7: 3, 9: 3, 9.1: 1} {
				h := worstHabit()
				h.SleepHours = hours
				r, err := s.Score(ctx, h)
				So(err, ShouldBeNil)
				So(r.Score, ShouldEqual, want)
			}
		})

		Convey("And exercise, screen and stress limits are exclusive", func() {
			h := worstHabit()
			h.ExerciseMinutes = 20
			h.ScreenMinutes = 30
			h.Stress = 4
			r, _ := s.Score(ctx, h)
			So(r.Score, ShouldEqual, 0)

			h.ExerciseMinutes = 21
			h.ScreenMinutes = 29
			h.Stress = 3
			r, _ = s.Score(ctx, h)
			So(r.Score, ShouldEqual, 5)
		})

		Convey("And categories switch at 9 and 5", func() {
			So(s.Classify(9), ShouldEqual, quality.Good)
			So(s.Classify(8), ShouldEqual, quality.Average)
			So(s.Classify(5), ShouldEqual, quality.Average)
			So(s.Classify(4), ShouldEqual, quality.Poor)
		})
	})
}

func TestRuleScorer_Options(t *testing.T) {
	Convey("Given custom thresholds", t, func() {
		s := scoring.NewRuleScorer(scoring.WithThresholds(12, 8))

		Convey("Then classification follows them", func() {
			good, avg := s.Thresholds()
			So(good, ShouldEqual, 12)
			So(avg, ShouldEqual, 8)
			So(s.Classify(11), ShouldEqual, quality.Average)
			So(s.Classify(7), ShouldEqual, quality.Poor)
		})
	})

	Convey("Given inverted thresholds", t, func() {
		s := scoring.NewRuleScorer(scoring.WithThresholds(3, 8))

		Convey("Then the defaults are kept", func() {
			good, avg := s.Thresholds()
			So(good, ShouldEqual, scoring.DefaultGoodThreshold)
			So(avg, ShouldEqual, scoring.DefaultAverageThreshold)
		})
	})
}

func TestRuleScorer_Context(t *testing.T) {
	Convey("Given a scorer with simulated latency", t, func() {
		s := scoring.NewRuleScorer(scoring.WithLatencyRange(50*time.Millisecond, 100*time.Millisecond))

		Convey("When the context expires first", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()
			_, err := s.Score(ctx, bestHabit())

			Convey("Then the call is abandoned", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When there is enough time", func() {
			start := time.Now()
			r, err := s.Score(context.Background(), bestHabit())

			Convey("Then it completes after the simulated delay", func() {
				So(err, ShouldBeNil)
				So(r.Quality, ShouldEqual, quality.Good)
				So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 50*time.Millisecond)
			})
		})
	})

	Convey("Given a latency range starting at zero", t, func() {
		s := scoring.NewRuleScorer(scoring.WithLatencyRange(0, 40*time.Millisecond))

		Convey("When scoring repeatedly", func() {
			const calls = 10
			start := time.Now()
			for range calls {
				_, err := s.Score(context.Background(), bestHabit())
				So(err, ShouldBeNil)
			}

			Convey("Then the calls are still delayed", func() {
				So(time.Since(start), ShouldBeGreaterThan, 20*time.Millisecond)
			})
		})
	})

	Convey("Given a range whose max does not exceed its min", t, func() {
		s := scoring.NewRuleScorer(scoring.WithLatencyRange(time.Second, time.Second))

		Convey("Then the option is ignored and scoring returns at once", func() {
			start := time.Now()
			_, err := s.Score(context.Background(), bestHabit())
			So(err, ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
		})
	})

	Convey("Given an already cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := scoring.NewRuleScorer().Score(ctx, bestHabit())

		Convey("Then scoring fails immediately", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
