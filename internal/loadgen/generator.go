package loadgen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/okian/slumber/internal/domain/habit"
)

// Distribution parameters of the synthetic population.
const (
	sleepMean, sleepStdDev, sleepMin, sleepMax             = 7.0, 1.5, 3.0, 12.0
	bedtimeMean, bedtimeStdDev, bedtimeMin, bedtimeMax     = 23.0, 1.0, 18.0, 28.0
	wakeMean, wakeStdDev, wakeMin, wakeMax                 = 7.0, 1.0, 4.0, 12.0
	exerciseMean, exerciseStdDev, exerciseMin, exerciseMax = 30.0, 20.0, 0.0, 120.0
	screenMean, screenStdDev, screenMin, screenMax         = 60.0, 30.0, 0.0, 180.0

	defaultStressMin = 1
	defaultStressMax = 10

	minutesPerHour = 60
	hoursPerDay    = 24
)

// caffeineWeights is the cumulative probability of each level, lowest first.
var caffeineWeights = []struct {
	level habit.CaffeineLevel
	cum   float64
}{
	{habit.CaffeineNone, 0.3},
	{habit.CaffeineLow, 0.6},
	{habit.CaffeineModerate, 0.9},
	{habit.CaffeineHigh, 1.0},
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithStressRange sets the inclusive stress bounds to draw from.
func WithStressRange(lo, hi int) GeneratorOption {
	return func(g *Generator) {
		if lo <= hi {
			g.stressMin, g.stressMax = lo, hi
		}
	}
}

// Generator draws habit records from the synthetic population. It is not
// safe for concurrent use.
type Generator struct {
	rng       *rand.Rand
	stressMin int
	stressMax int
}

// NewGenerator creates a deterministic generator for seed.
func NewGenerator(seed uint64, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:       rand.New(rand.NewPCG(seed, seed)), //nolint:gosec // synthetic load only
		stressMin: defaultStressMin,
		stressMax: defaultStressMax,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns n records.
func (g *Generator) Generate(n int) []habit.Record {
	out := make([]habit.Record, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Next draws a single record, encoded the way the form sends it.
func (g *Generator) Next() habit.Record {
	sleep := g.normal(sleepMean, sleepStdDev, sleepMin, sleepMax)
	bed := g.normal(bedtimeMean, bedtimeStdDev, bedtimeMin, bedtimeMax)
	wake := g.normal(wakeMean, wakeStdDev, wakeMin, wakeMax)
	exercise := g.normal(exerciseMean, exerciseStdDev, exerciseMin, exerciseMax)
	screen := g.normal(screenMean, screenStdDev, screenMin, screenMax)
	moods := habit.Moods()

	interruptions := "No"
	if g.rng.IntN(2) == 1 {
		interruptions = "Yes"
	}

	return habit.Record{
		SleepDuration:    habit.Value(strconv.FormatFloat(round1(sleep), 'f', -1, 64)),
		Bedtime:          habit.Value(clock(bed)),
		WakeTime:         habit.Value(clock(wake)),
		Caffeine:         habit.Value(g.caffeine()),
		ExerciseDuration: habit.Value(strconv.Itoa(int(math.Round(exercise)))),
		ScreenTime:       habit.Value(strconv.Itoa(int(math.Round(screen)))),
		StressLevel:      habit.Value(strconv.Itoa(g.stressMin + g.rng.IntN(g.stressMax-g.stressMin+1))),
		Mood:             habit.Value(moods[g.rng.IntN(len(moods))]),
		Interruptions:    habit.Value(interruptions),
	}
}

func (g *Generator) normal(mean, stddev, lo, hi float64) float64 {
	return min(max(mean+g.rng.NormFloat64()*stddev, lo), hi)
}

func (g *Generator) caffeine() habit.CaffeineLevel {
	p := g.rng.Float64()
	for _, w := range caffeineWeights {
		if p < w.cum {
			return w.level
		}
	}
	return habit.CaffeineHigh
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// clock renders fractional hours as HH:MM, wrapping past midnight.
func clock(hours float64) string {
	total := int(math.Round(hours*minutesPerHour)) % (hoursPerDay * minutesPerHour)
	return fmt.Sprintf("%02d:%02d", total/minutesPerHour, total%minutesPerHour)
}
