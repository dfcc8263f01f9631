package habit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Parsing bounds.
const (
	maxSleepHours       = 24
	minutesPerHour      = 60
	defaultStressMin    = 1
	defaultStressMax    = 10
	servingsLow         = 1
	servingsModerate    = 2
	servingsHigh        = 3
)

// CaffeineLevel is the coarse caffeine intake bucket.
type CaffeineLevel string

// Caffeine levels, lowest first.
const (
	CaffeineNone     CaffeineLevel = "None"
	CaffeineLow      CaffeineLevel = "Low"
	CaffeineModerate CaffeineLevel = "Moderate"
	CaffeineHigh     CaffeineLevel = "High"
)

// Mood is the self-reported mood of the day.
type Mood string

// Moods accepted by the form.
const (
	MoodHappy   Mood = "Happy"
	MoodNeutral Mood = "Neutral"
	MoodSad     Mood = "Sad"
	MoodAnxious Mood = "Anxious"
)

// Moods lists every accepted mood.
func Moods() []Mood { return []Mood{MoodHappy, MoodNeutral, MoodSad, MoodAnxious} }

// CaffeineLevels lists every caffeine level, lowest first.
func CaffeineLevels() []CaffeineLevel {
	return []CaffeineLevel{CaffeineNone, CaffeineLow, CaffeineModerate, CaffeineHigh}
}

// TimeOfDay is a wall-clock time on a 24h dial.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Hours returns the time as fractional hours since midnight.
func (t TimeOfDay) Hours() float64 {
	return float64(t.Hour) + float64(t.Minute)/minutesPerHour
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// ParseTimeOfDay parses "HH:MM" (seconds, if present, are ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("hour out of range in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("minute out of range in %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, fmt.Errorf("second out of range in %q", s)
		}
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Habit is a validated Habit Record.
type Habit struct {
	SleepHours      float64
	Bedtime         TimeOfDay
	WakeTime        TimeOfDay
	Caffeine        CaffeineLevel
	ExerciseMinutes float64
	ScreenMinutes   float64
	Stress          int
	Mood            Mood
	Interruptions   int
}

// Interrupted reports whether sleep was interrupted at least once.
func (h Habit) Interrupted() bool { return h.Interruptions > 0 }

// Canonical renders the habit in a stable normalized form.
func (h Habit) Canonical() string {
	return fmt.Sprintf("sleep=%s|bed=%s|wake=%s|caffeine=%s|exercise=%s|screen=%s|stress=%d|mood=%s|interruptions=%d",
		strconv.FormatFloat(h.SleepHours, 'f', -1, 64),
		h.Bedtime, h.WakeTime, h.Caffeine,
		strconv.FormatFloat(h.ExerciseMinutes, 'f', -1, 64),
		strconv.FormatFloat(h.ScreenMinutes, 'f', -1, 64),
		h.Stress, h.Mood, h.Interruptions,
	)
}

// Fingerprint hashes the canonical form. Records that differ only in
// spelling ("7" vs "7.0", "high" vs "High") share a fingerprint.
func (h Habit) Fingerprint() uint64 {
	return xxhash.Sum64String(h.Canonical())
}

// Option configures a Parser.
type Option func(*Parser)

// WithStressRange sets the inclusive stress_level bounds.
func WithStressRange(lo, hi int) Option {
	return func(p *Parser) {
		if lo <= hi {
			p.stressMin, p.stressMax = lo, hi
		}
	}
}

// Parser validates Records into Habits.
type Parser struct {
	stressMin int
	stressMax int
}

// NewParser creates a Parser with the default 1-10 stress range.
func NewParser(opts ...Option) *Parser {
	p := &Parser{stressMin: defaultStressMin, stressMax: defaultStressMax}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StressRange returns the inclusive stress bounds.
func (p *Parser) StressRange() (int, int) { return p.stressMin, p.stressMax }

// Parse validates r field by field, in wire order, and returns the first
// failure as a *FieldError.
func (p *Parser) Parse(r Record) (Habit, error) {
	var (
		h   Habit
		err error
	)
	if h.SleepHours, err = parseNumber(FieldSleepDuration, r.SleepDuration); err != nil {
		return Habit{}, err
	}
	if h.SleepHours <= 0 || h.SleepHours > maxSleepHours {
		return Habit{}, invalid(FieldSleepDuration, fmt.Errorf("must be in (0, %d]", maxSleepHours))
	}
	if h.Bedtime, err = parseTime(FieldBedtime, r.Bedtime); err != nil {
		return Habit{}, err
	}
	if h.WakeTime, err = parseTime(FieldWakeTime, r.WakeTime); err != nil {
		return Habit{}, err
	}
	if h.Caffeine, err = parseCaffeine(r.Caffeine); err != nil {
		return Habit{}, err
	}
	if h.ExerciseMinutes, err = parseNonNegative(FieldExerciseDuration, r.ExerciseDuration); err != nil {
		return Habit{}, err
	}
	if h.ScreenMinutes, err = parseNonNegative(FieldScreenTime, r.ScreenTime); err != nil {
		return Habit{}, err
	}
	if h.Stress, err = p.parseStress(r.StressLevel); err != nil {
		return Habit{}, err
	}
	if h.Mood, err = parseMood(r.Mood); err != nil {
		return Habit{}, err
	}
	if h.Interruptions, err = parseInterruptions(r.Interruptions); err != nil {
		return Habit{}, err
	}
	return h, nil
}

func text(field string, v Value) (string, error) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return "", missing(field)
	}
	return s, nil
}

func parseNumber(field string, v Value) (float64, error) {
	s, err := text(field, v)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid(field, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(field, errors.New("not a finite number"))
	}
	return f, nil
}

func parseNonNegative(field string, v Value) (float64, error) {
	f, err := parseNumber(field, v)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, invalid(field, errors.New("must not be negative"))
	}
	return f, nil
}

func parseTime(field string, v Value) (TimeOfDay, error) {
	s, err := text(field, v)
	if err != nil {
		return TimeOfDay{}, err
	}
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return TimeOfDay{}, invalid(field, err)
	}
	return t, nil
}

// parseCaffeine accepts a level label or a serving count.
func parseCaffeine(v Value) (CaffeineLevel, error) {
	s, err := text(FieldCaffeine, v)
	if err != nil {
		return "", err
	}
	for _, lvl := range CaffeineLevels() {
		if strings.EqualFold(s, string(lvl)) {
			return lvl, nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return "", invalid(FieldCaffeine, fmt.Errorf("want None, Low, Moderate, High or a serving count, got %q", s))
	}
	switch {
	case n >= servingsHigh:
		return CaffeineHigh, nil
	case n >= servingsModerate:
		return CaffeineModerate, nil
	case n >= servingsLow:
		return CaffeineLow, nil
	}
	return CaffeineNone, nil
}

func (p *Parser) parseStress(v Value) (int, error) {
	s, err := text(FieldStressLevel, v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(FieldStressLevel, err)
	}
	if n < p.stressMin || n > p.stressMax {
		return 0, invalid(FieldStressLevel, fmt.Errorf("must be within [%d, %d]", p.stressMin, p.stressMax))
	}
	return n, nil
}

func parseMood(v Value) (Mood, error) {
	s, err := text(FieldMood, v)
	if err != nil {
		return "", err
	}
	for _, m := range Moods() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", invalid(FieldMood, fmt.Errorf("unknown mood %q", s))
}

// parseInterruptions accepts Yes/No or a non-negative count.
func parseInterruptions(v Value) (int, error) {
	s, err := text(FieldInterruptions, v)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(s) {
	case "yes", "true":
		return 1, nil
	case "no", "false":
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, invalid(FieldInterruptions, fmt.Errorf("want Yes, No or a count, got %q", s))
	}
	return n, nil
}
