// Package quality defines the sleep quality categories a prediction resolves to.
package quality

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknown is returned when a label is not one of the known categories.
var ErrUnknown = errors.New("unknown quality")

// Quality is a predicted sleep quality category.
type Quality string

// Known categories, best to worst.
const (
	Good    Quality = "Good"
	Average Quality = "Average"
	Poor    Quality = "Poor"
)

// All lists every category, best first.
func All() []Quality {
	return []Quality{Good, Average, Poor}
}

// Parse converts an exact label into a Quality.
func Parse(s string) (Quality, error) {
	switch q := Quality(s); q {
	case Good, Average, Poor:
		return q, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

// Valid reports whether q is a known category.
func (q Quality) Valid() bool {
	_, err := Parse(string(q))
	return err == nil
}

func (q Quality) String() string { return string(q) }

// UnmarshalJSON rejects labels outside the known set.
func (q *Quality) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
