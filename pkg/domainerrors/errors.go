// Package domainerrors provides code-carrying errors for domain operations.
//
// Services return these instead of raw errors so transport layers can
// translate outcomes (conflict, not found, upstream failure) without string
// matching. Infrastructure layers return pkg/platform/sentinel errors and
// services wrap them with a code here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and the HTTP layer.
type Code string

const (
	// CodeConflict signals a uniqueness or state conflict (HTTP 409).
	CodeConflict Code = "conflict"
	// CodeNotFound signals an absent entity (HTTP 404).
	CodeNotFound Code = "not_found"
	// CodeBadRequest signals invalid caller input (HTTP 400).
	CodeBadRequest Code = "bad_request"
	// CodeUnavailable signals a dependent system failure after retries
	// were exhausted (HTTP 502).
	CodeUnavailable Code = "unavailable"
	// CodeInternal signals an unexpected fault (HTTP 500).
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// CodeOf returns the outermost code on err, or CodeInternal if none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message on err, or empty if none.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
