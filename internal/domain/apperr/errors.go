// Package apperr defines the sentinel error taxonomy shared by repositories,
// pipeline stages, rule executors, and the AI driver. Callers wrap these with
// %w and only translate to an HTTP/persisted-status string at the version or
// run boundary — never earlier.
package apperr

import "fmt"

// Sentinel categories. Concrete errors wrap one of these with errors.Is semantics.
var (
	// ErrValidation covers bad input: unsupported file type, oversize upload,
	// malformed rule config. No state mutation has happened when this is returned.
	ErrValidation = fmt.Errorf("validation error")

	// ErrNotFound covers an unknown version/document/run/issue/checkpoint id.
	ErrNotFound = fmt.Errorf("not found")

	// ErrConflict covers a rejected concurrent reprocess request: at most one
	// pipeline may be active per version.
	ErrConflict = fmt.Errorf("conflict")

	// ErrTransient covers a retryable external failure: model call, object
	// store, or conversion subprocess. Callers may retry locally before this
	// surfaces.
	ErrTransient = fmt.Errorf("transient failure")
)

// ValidationError carries the offending field alongside ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names the entity kind and id that could not be located.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError explains why a mutation was rejected.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransientError wraps an upstream failure with the subsystem that produced it.
type TransientError struct {
	Subsystem string
	Cause     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subsystem, e.Cause)
}

func (e *TransientError) Unwrap() error { return ErrTransient }

// Truncate caps an error message to n characters, as required at stage and
// run boundaries (version.error_message, run.error_message) per the
// truncated-error-message rule.
func Truncate(msg string, n int) string {
	r := []rune(msg)
	if len(r) <= n {
		return msg
	}
	return string(r[:n])
}
