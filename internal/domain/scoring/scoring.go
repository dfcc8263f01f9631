// Package scoring classifies a habit record into a sleep quality category.
package scoring

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
)

// Default thresholds and weights. MaxScore is the sum of every weight.
const (
	DefaultGoodThreshold    = 9
	DefaultAverageThreshold = 5
	MaxScore                = 13

	idealSleepPoints   = 3
	partialSleepPoints = 1
	lowCaffeinePoints  = 2
	exercisePoints     = 1
	lowScreenPoints    = 2
	lowStressPoints    = 2
	happyMoodPoints    = 1
	unbrokenPoints     = 2

	idealSleepMin   = 7.0
	idealSleepMax   = 9.0
	partialSleepMin = 5.0
	exerciseMin     = 20.0 // minutes, exclusive
	screenMax       = 30.0 // minutes, exclusive
	stressMax       = 4    // exclusive

	defaultRandomSeed = 42
)

// Factor names reported in Result.Factors.
const (
	FactorIdealSleep   = "ideal_sleep"
	FactorPartialSleep = "partial_sleep"
	FactorLowCaffeine  = "low_caffeine"
	FactorExercise     = "exercise"
	FactorLowScreen    = "low_screen_time"
	FactorLowStress    = "low_stress"
	FactorHappyMood    = "happy_mood"
	FactorUnbroken     = "unbroken_sleep"
)

// Option applies a configuration option to the RuleScorer.
type Option func(*RuleScorer)

// WithThresholds sets the minimum scores for Good and Average.
// Ignored unless 0 <= average <= good.
func WithThresholds(good, average int) Option {
	return func(s *RuleScorer) {
		if average >= 0 && average <= good {
			s.goodThreshold = good
			s.averageThreshold = average
		}
	}
}

// WithLatencyRange simulates a remote model call taking between min and max.
// A zero min is allowed. Ignored unless 0 <= min < max.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *RuleScorer) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// Result is the outcome of classifying one habit.
type Result struct {
	Quality quality.Quality
	Score   int
	// Factors lists the habits that earned points, in evaluation order.
	Factors []string
}

// Scorer classifies a habit, honoring ctx for cancellation.
type Scorer interface {
	Score(ctx context.Context, h habit.Habit) (Result, error)
}

// RuleScorer is an additive point score over the nine habits.
type RuleScorer struct {
	goodThreshold    int
	averageThreshold int

	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRuleScorer creates a scorer with the default thresholds and no latency.
func NewRuleScorer(opts ...Option) *RuleScorer {
	s := &RuleScorer{
		goodThreshold:    DefaultGoodThreshold,
		averageThreshold: DefaultAverageThreshold,
		rng:              rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // latency jitter only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the Good and Average minimum scores.
func (s *RuleScorer) Thresholds() (good, average int) {
	return s.goodThreshold, s.averageThreshold
}

// Score computes the habit score and its category.
func (s *RuleScorer) Score(ctx context.Context, h habit.Habit) (Result, error) {
	if err := s.wait(ctx); err != nil {
		return Result{}, err
	}

	var r Result
	add := func(points int, factor string) {
		r.Score += points
		r.Factors = append(r.Factors, factor)
	}

	switch {
	case h.SleepHours >= idealSleepMin && h.SleepHours <= idealSleepMax:
		add(idealSleepPoints, FactorIdealSleep)
	case h.SleepHours >= partialSleepMin:
		add(partialSleepPoints, FactorPartialSleep)
	}
	if h.Caffeine == habit.CaffeineNone || h.Caffeine == habit.CaffeineLow {
		add(lowCaffeinePoints, FactorLowCaffeine)
	}
	if h.ExerciseMinutes > exerciseMin {
		add(exercisePoints, FactorExercise)
	}
	if h.ScreenMinutes < screenMax {
		add(lowScreenPoints, FactorLowScreen)
	}
	if h.Stress < stressMax {
		add(lowStressPoints, FactorLowStress)
	}
	if h.Mood == habit.MoodHappy {
		add(happyMoodPoints, FactorHappyMood)
	}
	if !h.Interrupted() {
		add(unbrokenPoints, FactorUnbroken)
	}

	r.Quality = s.Classify(r.Score)
	return r, nil
}

// Classify maps a score onto a category.
func (s *RuleScorer) Classify(score int) quality.Quality {
	switch {
	case score >= s.goodThreshold:
		return quality.Good
	case score >= s.averageThreshold:
		return quality.Average
	default:
		return quality.Poor
	}
}

func (s *RuleScorer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if s.maxLatency <= 0 {
		return nil
	}
	s.mu.Lock()
	latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
	s.mu.Unlock()

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
