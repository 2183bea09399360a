// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an agent error. The kind decides whether the loop may retry.
type Kind string

const (
	KindBrowser     Kind = "browser"
	KindOracle      Kind = "oracle"
	KindParse       Kind = "parse"
	KindExtraction  Kind = "extraction"
	KindPersistence Kind = "persistence"
	KindConfig      Kind = "config"
	KindValidation  Kind = "validation"
	KindUnknown     Kind = "unknown"
)

// Error wraps a failure with the operation that produced it
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Op != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Kind, e.Op)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by kind, otherwise defers to the underlying error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Underlying, target)
}

// Retryable reports whether the operation may be attempted again
func (e *Error) Retryable() bool {
	return e.Retry
}

// NewError creates an Error of the given kind
func NewError(kind Kind, op, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Op:         op,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *Error) WithRetry() *Error {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// BrowserError reports a launch, tab, navigation or selector failure. Always retryable.
func BrowserError(op, message string, err error) *Error {
	return NewError(KindBrowser, op, message, err).WithRetry()
}

// OracleError reports an unavailable or unusable decision source. Always retryable.
func OracleError(op, message string, err error) *Error {
	return NewError(KindOracle, op, message, err).WithRetry()
}

// ExtractionError reports a record that could not be extracted. The record is skipped.
func ExtractionError(op, message string, err error) *Error {
	return NewError(KindExtraction, op, message, err)
}

// PersistenceError reports a record that could not be stored. The record is skipped.
func PersistenceError(op, message string, err error) *Error {
	return NewError(KindPersistence, op, message, err)
}

// ConfigError is fatal at startup
func ConfigError(op, message string, err error) *Error {
	return NewError(KindConfig, op, message, err)
}

// ValidationError is fatal for the request that produced it
func ValidationError(op, message string, err error) *Error {
	return NewError(KindValidation, op, message, err)
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether any *Error in err's chain is retryable
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retry
	}
	return false
}

// IsFatal reports whether err must stop the program at startup
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindValidation:
		return true
	}
	return false
}
