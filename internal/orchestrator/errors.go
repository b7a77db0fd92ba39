package orchestrator

import (
	"errors"
	"fmt"
)

// Error codes for orchestration failures.
const (
	// ErrCodeNoEngines indicates no engine was healthy and applicable.
	ErrCodeNoEngines = "no_engines"

	// ErrCodeAllFailed indicates every attempted engine failed.
	ErrCodeAllFailed = "all_failed"

	// ErrCodeInvalidConfig indicates the configuration can never select
	// or qualify an engine.
	ErrCodeInvalidConfig = "invalid_config"

	// ErrCodeDuplicateEngine indicates a name collision at registration.
	ErrCodeDuplicateEngine = "duplicate_engine"

	// ErrCodeUnknownEngine indicates an operation on an unregistered name.
	ErrCodeUnknownEngine = "unknown_engine"
)

// Error is a typed orchestration error.
type Error struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Engine is the engine the error concerns, when there is one.
	Engine string `json:"engine,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Cause is the underlying error (if any).
	Cause error `json:"-"`
}

func (e *Error) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("orchestrator: %s (%s): %s", e.Code, e.Engine, e.Message)
	}
	return fmt.Sprintf("orchestrator: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err is an orchestrator Error with the given code.
func IsCode(err error, code string) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == code
}
