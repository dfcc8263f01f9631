package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound          = errors.New("prediction not found")
	ErrInvalidLimit      = errors.New("invalid history limit")
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrClosed            = errors.New("store closed")
)
