// Package habit models the daily-habit record submitted for a sleep prediction.
package habit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names as they appear on the wire.
const (
	FieldSleepDuration    = "sleep_duration"
	FieldBedtime          = "bedtime"
	FieldWakeTime         = "wake_time"
	FieldCaffeine         = "caffeine"
	FieldExerciseDuration = "exercise_duration"
	FieldScreenTime       = "screen_time"
	FieldStressLevel      = "stress_level"
	FieldMood             = "mood"
	FieldInterruptions    = "interruptions"
)

// Value is a form value. Clients send strings; numbers are accepted too and
// kept in their JSON text form. null decodes to the empty value.
type Value string

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*v = Value(n.String())
		return nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*v = Value(b)
		return nil
	}
	return fmt.Errorf("unsupported form value %s", b)
}

// Record is the wire form of a Habit Record: the nine form controls,
// untouched by type coercion.
type Record struct {
	SleepDuration    Value `json:"sleep_duration"`
	Bedtime          Value `json:"bedtime"`
	WakeTime         Value `json:"wake_time"`
	Caffeine         Value `json:"caffeine"`
	ExerciseDuration Value `json:"exercise_duration"`
	ScreenTime       Value `json:"screen_time"`
	StressLevel      Value `json:"stress_level"`
	Mood             Value `json:"mood"`
	Interruptions    Value `json:"interruptions"`
}
