package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// Named error kinds handled uniformly by the pipeline's fallback ladder.
// Collaborator boundaries wrap failures in one of these so callers branch
// with errors.Is instead of inspecting messages.
var (
	// ErrProvider marks transient completion-provider failures (timeout,
	// connection, rate limit, 5xx). Retried within a provider, then
	// escalated to the next provider in the fallback chain.
	ErrProvider = errors.New("provider error")

	// ErrProviderUnconfigured marks a provider skipped for missing
	// credentials. Not retried.
	ErrProviderUnconfigured = errors.New("provider not configured")

	// ErrParse marks malformed structured output from a completion. Triggers
	// the next fallback tier, never propagates to the session caller.
	ErrParse = errors.New("parse error")

	// ErrCollaboratorUnavailable marks storage or criteria-engine failures.
	// The pipeline logs it and proceeds with degraded input.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)
