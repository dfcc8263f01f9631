// Package repository stores the history of predictions.
package repository

import (
	"context"

	"github.com/okian/slumber/internal/domain/model"
)

// Store provides read/write access to prediction history.
type Store interface {
	// Save persists p. Saving an existing ID replaces it.
	Save(ctx context.Context, p model.Prediction) error

	// Get returns the prediction with id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Prediction, error)

	// Recent returns up to n predictions, newest first.
	Recent(ctx context.Context, n int) ([]model.Prediction, error)

	// Count returns the number of stored predictions.
	Count(ctx context.Context) int

	Close() error
}

func validate(p model.Prediction) error {
	if p.ID == "" || !p.Quality.Valid() {
		return ErrInvalidPrediction
	}
	return nil
}
