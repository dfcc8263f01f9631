package client

import (
	"strconv"

	"github.com/okian/slumber/internal/domain/habit"
)

// Control defaults, matching the form's initial values.
const (
	DefaultSleepDuration    = "7"
	DefaultBedtime          = "23:00"
	DefaultWakeTime         = "07:00"
	DefaultCaffeine         = "None"
	DefaultExerciseDuration = "30"
	DefaultScreenTime       = "60"
	DefaultStressLevel      = 5
	DefaultMood             = "Neutral"
	DefaultInterruptions    = "No"

	StressMin = 1
	StressMax = 10
)

// Form holds the nine controls, the stress slider label and the result panel.
type Form struct {
	SleepDuration    string
	Bedtime          string
	WakeTime         string
	Caffeine         string
	ExerciseDuration string
	ScreenTime       string
	StressLevel      int
	Mood             string
	Interruptions    string

	// StressLabel mirrors the slider position.
	StressLabel string

	submission *Submission
}

// NewForm returns a form at its defaults with an idle result panel.
func NewForm() *Form {
	f := &Form{submission: NewSubmission()}
	f.defaults()
	return f
}

func (f *Form) defaults() {
	f.SleepDuration = DefaultSleepDuration
	f.Bedtime = DefaultBedtime
	f.WakeTime = DefaultWakeTime
	f.Caffeine = DefaultCaffeine
	f.ExerciseDuration = DefaultExerciseDuration
	f.ScreenTime = DefaultScreenTime
	f.StressLevel = DefaultStressLevel
	f.Mood = DefaultMood
	f.Interruptions = DefaultInterruptions
	f.StressLabel = strconv.Itoa(f.StressLevel)
}

// SetStress moves the slider, clamped to its bounds, and updates the label.
func (f *Form) SetStress(v int) {
	f.StressLevel = min(max(v, StressMin), StressMax)
	f.StressLabel = strconv.Itoa(f.StressLevel)
}

// Record collects the controls as sent on the wire, without coercion.
func (f *Form) Record() habit.Record {
	return habit.Record{
		SleepDuration:    habit.Value(f.SleepDuration),
		Bedtime:          habit.Value(f.Bedtime),
		WakeTime:         habit.Value(f.WakeTime),
		Caffeine:         habit.Value(f.Caffeine),
		ExerciseDuration: habit.Value(f.ExerciseDuration),
		ScreenTime:       habit.Value(f.ScreenTime),
		StressLevel:      habit.Value(strconv.Itoa(f.StressLevel)),
		Mood:             habit.Value(f.Mood),
		Interruptions:    habit.Value(f.Interruptions),
	}
}

// Submission exposes the result panel's state machine.
func (f *Form) Submission() *Submission { return f.submission }

// Reset restores every control, sets the stress label to the slider value
// and puts the result panel back to Idle.
func (f *Form) Reset() {
	f.defaults()
	f.submission.Reset()
}
