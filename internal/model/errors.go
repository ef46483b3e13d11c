package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork means the remote side could not be reached
	ErrNetwork = errors.New("network error")

	// ErrTimeout means a bounded operation ran out of time. It also matches ErrNetwork.
	ErrTimeout error = &timeoutError{}

	ErrRateLimited        = errors.New("rate limited")
	ErrUpstream           = errors.New("upstream service error")
	ErrParseFailure       = errors.New("no parsable JSON object in model output")
	ErrSchemaViolation    = errors.New("schema violation")
	ErrTemplateMismatch   = errors.New("template mismatch")
	ErrTemplateLoad       = errors.New("template load failed")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInsufficientData   = errors.New("insufficient data")
)

type timeoutError struct{}

func (e *timeoutError) Error() string { return "request timeout" }

func (e *timeoutError) Is(target error) bool { return target == ErrNetwork }

// FieldError reports the first field that failed validation
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == ErrSchemaViolation }

// StatusError is a non-2xx response from an upstream HTTP service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// Is classifies the status: 429 is ErrRateLimited, anything else is ErrUpstream
func (e *StatusError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	return target == ErrUpstream
}

// KindOf returns a short stable label for an error, used in metrics and logs
func KindOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrTemplateMismatch):
		return "template_mismatch"
	case errors.Is(err, ErrTemplateLoad):
		return "template_load"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "internal"
	}
}
