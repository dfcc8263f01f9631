package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrInvalidLimit  = errors.New("invalid limit")
)

// Public error messages. Clients display these verbatim.
const (
	msgMalformedBody    = "Malformed request body"
	msgPredictionFailed = "Prediction failed"
	msgTooManyRequests  = "Too many requests"
	msgNotFound         = "Prediction not found"
	msgInvalidLimit     = "Invalid limit"
	msgMethodNotAllowed = "Method not allowed"
)

// Machine-readable error codes carried next to the message.
const (
	codeBadRequest       = "bad_request"
	codeMissingField     = "missing_field"
	codeInvalidField     = "invalid_field"
	codeRateLimited      = "rate_limited"
	codeNotFound         = "not_found"
	codeInternal         = "internal_error"
	codeMethodNotAllowed = "method_not_allowed"
)
