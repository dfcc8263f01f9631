// Package tips turns a habit and its quality category into ordered advice.
package tips

import (
	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
)

// Advice strings, in the order rules are evaluated.
const (
	MoreSleep        = "Try to get at least 7-8 hours of sleep."
	LessCaffeine     = "Consider reducing caffeine intake, especially later in the day."
	LessScreen       = "Reducing screen time before bed can improve sleep quality."
	LowerStress      = "Practice relaxation techniques like meditation or reading to lower stress."
	ConsistentSched  = "Maintain a consistent sleep schedule."
	KeepItUp         = "Keep up the great habits!"
	minSleepHours    = 7.0
	maxScreenMinutes = 60.0
	maxStress        = 5
)

type rule struct {
	applies func(habit.Habit) bool
	tip     string
}

var rules = []rule{
	{func(h habit.Habit) bool { return h.SleepHours < minSleepHours }, MoreSleep},
	{func(h habit.Habit) bool {
		return h.Caffeine == habit.CaffeineModerate || h.Caffeine == habit.CaffeineHigh
	}, LessCaffeine},
	{func(h habit.Habit) bool { return h.ScreenMinutes > maxScreenMinutes }, LessScreen},
	{func(h habit.Habit) bool { return h.Stress > maxStress }, LowerStress},
}

// Generate returns the tips for h. The result is never empty.
func Generate(h habit.Habit, q quality.Quality) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.applies(h) {
			out = append(out, r.tip)
		}
	}
	if len(out) > 0 {
		return out
	}
	if q == quality.Poor {
		return []string{ConsistentSched}
	}
	return []string{KeepItUp}
}
