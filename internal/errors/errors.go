// Package errors defines the typed, kind-tagged error used across every
// jeeves component so the boundary API can map a failure to a response
// envelope without re-parsing error strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindScheduler  Kind = "scheduler"
	KindIO         Kind = "io"
	KindProvider   Kind = "provider"
	KindInternal   Kind = "internal"
)

// Error is the common error type returned across component boundaries.
type Error struct {
	Kind   Kind
	Op     string // the operation that failed, e.g. "store.SetStatus"
	Err    error  // wrapped cause, may be nil
	Msg    string // human-readable message; falls back to Err.Error()
	Fields map[string]string // per-field messages, set only for KindValidation
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a kind-tagged error.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches a kind and operation name to an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal if err does not
// carry one. err == nil also yields KindInternal, so callers check
// err != nil first (as Is does).
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// Is reports whether err (or something it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether an error's Kind represents a condition a
// supervising caller (the run manager retrying a provider invocation, the
// scheduler requeueing a task) may reasonably retry without operator
// intervention. IO and provider failures are transient by nature; the
// rest name an unambiguous programmer or user mistake.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindIO, KindProvider:
		return true
	default:
		return false
	}
}

// NotFound is a convenience constructor for the common not-found case.
func NotFound(op, msg string) *Error { return New(KindNotFound, op, msg) }

// Validation is a convenience constructor for the common validation case.
func Validation(op, msg string) *Error { return New(KindValidation, op, msg) }

// ValidationFields constructs a validation error carrying per-field messages,
// surfaced by the boundary layer as the response envelope's field_errors.
func ValidationFields(op, msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Fields: fields}
}

// Conflict is a convenience constructor for the common conflict case.
func Conflict(op, msg string) *Error { return New(KindConflict, op, msg) }
