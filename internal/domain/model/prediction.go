// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/slumber/internal/domain/habit"
	"github.com/okian/slumber/internal/domain/quality"
)

// Prediction is one served prediction: the submitted record, its category,
// the habit score behind it and the advice returned. Factors names the
// habits that earned points.
type Prediction struct {
	ID        string          `json:"id"`
	Record    habit.Record    `json:"record"`
	Quality   quality.Quality `json:"quality"`
	Score     int             `json:"score"`
	Factors   []string        `json:"factors"`
	Tips      []string        `json:"tips"`
	CreatedAt time.Time       `json:"created_at"`
}

// Clone returns a copy that shares no slices with p.
func (p Prediction) Clone() Prediction {
	c := p
	c.Tips = append([]string(nil), p.Tips...)
	c.Factors = append([]string(nil), p.Factors...)
	return c
}
