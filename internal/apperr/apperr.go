/*
Package apperr defines the error taxonomy shared by every component of the
orchestrator. Components never return bare errors across a package boundary;
they wrap the underlying cause in a *Error carrying one of the Kind values
below so the HTTP surface can map it to a status code in one place instead of
string-matching messages.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP status mapping and
// job-state reporting. See SPEC_FULL.md §7 for the propagation policy.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindValidationFailed Kind = "validation_failed"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindWorkerFailed     Kind = "worker_failed"
	KindTimeout          Kind = "timeout"
	KindCancelled        Kind = "cancelled"
	KindStorageError     Kind = "storage_error"
	KindInternal         Kind = "internal"
)

// Error is the concrete error type carried across component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Errors  []string // structured validation messages, when Kind == KindValidationFailed
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error that wraps cause, matching the fmt.Errorf("...: %w",
// err) idiom used throughout this codebase's subsystems.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation builds a KindValidationFailed error carrying the full list of
// per-field messages the Validation Layer produced.
func Validation(messages []string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: "validation failed",
		Errors:  messages,
	}
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind carried by err, or KindInternal if err does not
// wrap an *Error.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}
