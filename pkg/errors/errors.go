// Package errors defines the error taxonomy shared by the transfer engine.
//
// Every error produced by the engine falls into one of a small number of
// categories that callers can branch on:
//   - validation: the requested transition is not legal (never retried)
//   - not_found: a referenced record vanished, e.g. deleted concurrently
//   - persistence: the underlying store failed; may be retried once
//   - configuration: the engine was constructed with invalid settings
//
// Errors carry a machine-readable code, a user-presentable message, an
// optional suggestion, and arbitrary context for logging.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category groups errors by how callers should react to them.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not_found"
	CategoryPersistence   Category = "persistence"
	CategoryConfiguration Category = "configuration"
	CategoryInternal      Category = "internal"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// Validation codes
	CodeSelfTransfer    Code = "self_transfer"
	CodeAlreadyLinked   Code = "already_linked"
	CodeWrongState      Code = "wrong_state"
	CodeMissingField    Code = "missing_field"
	CodeAmountMismatch  Code = "amount_mismatch"
	CodeInvalidArgument Code = "invalid_argument"

	// Not-found codes
	CodeTransactionNotFound Code = "transaction_not_found"
	CodeAccountNotFound     Code = "account_not_found"
	CodeTransferNotFound    Code = "transfer_not_found"

	// Persistence codes
	CodeSaveFailed   Code = "save_failed"
	CodeQueryFailed  Code = "query_failed"
	CodeCommitFailed Code = "commit_failed"

	// Configuration codes
	CodeInvalidConfig Code = "invalid_config"

	// Internal codes
	CodeUnexpected Code = "unexpected_error"
)

// Context carries structured key/value details for logging.
type Context map[string]interface{}

// EngineError is the concrete error type returned by all engine operations.
type EngineError struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a message safe to surface in a UI. Persistence and
// internal errors are collapsed to a generic message so store details never
// leak to the user.
func (e *EngineError) UserMessage() string {
	switch e.Category {
	case CategoryValidation:
		return e.Message
	case CategoryNotFound:
		return "This item is no longer available."
	default:
		return "Something went wrong saving your changes. Please try again."
	}
}

// WithContext attaches a key/value pair to the error.
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a hint for resolving the error.
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError with a captured stack trace.
func New(category Category, code Code, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with engine error context. Returns nil when
// err is nil so it can be used unconditionally on return paths.
func Wrap(err error, category Category, code Code, message string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Validation creates a validation error for an illegal transition or input.
func Validation(code Code, message string) *EngineError {
	e := New(CategoryValidation, code, message)
	switch code {
	case CodeSelfTransfer:
		e.Suggestion = "choose a counterpart on a different account"
	case CodeAlreadyLinked:
		e.Suggestion = "unlink the transaction before linking it again"
	case CodeWrongState:
		e.Suggestion = "mark the transaction as a transfer first"
	}
	return e
}

// NotFound creates a not-found error for a record that no longer exists.
func NotFound(code Code, kind, id string) *EngineError {
	return New(CategoryNotFound, code, fmt.Sprintf("%s %s no longer exists", kind, id)).
		WithContext("id", id)
}

// Persistence wraps a store failure.
func Persistence(code Code, operation string, err error) *EngineError {
	return Wrap(err, CategoryPersistence, code, fmt.Sprintf("store operation %s failed", operation)).
		WithContext("operation", operation)
}

// Configuration creates a configuration error.
func Configuration(setting string, value interface{}, err error) *EngineError {
	msg := fmt.Sprintf("invalid configuration for %q: %v", setting, value)
	var e *EngineError
	if err != nil {
		e = Wrap(err, CategoryConfiguration, CodeInvalidConfig, msg)
	} else {
		e = New(CategoryConfiguration, CodeInvalidConfig, msg)
	}
	return e.WithContext("setting", setting).WithContext("value", value)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *EngineError {
	if err != nil {
		return Wrap(err, CategoryInternal, CodeUnexpected, message)
	}
	return New(CategoryInternal, CodeUnexpected, message)
}

// AsEngineError extracts an *EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	for err != nil {
		if ee, ok := err.(*EngineError); ok {
			return ee, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category Category) bool {
	if ee, ok := AsEngineError(err); ok {
		return ee.Category == category
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return IsCategory(err, CategoryValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsCategory(err, CategoryNotFound) }

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool { return IsCategory(err, CategoryPersistence) }

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if ee, ok := AsEngineError(err); ok {
		return ee.Code == code
	}
	return false
}
