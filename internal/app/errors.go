package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotFound      = errors.New("prediction not found")
	ErrInvalidLimit  = errors.New("invalid history limit")
	ErrScoringFailed = errors.New("prediction failed")
	ErrNotStarted    = errors.New("service not started")
	ErrStopped       = errors.New("service stopped")
)
