package engine

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("engine: store closed")

// RuntimeError describes a failure while processing one action. Runtime
// errors are published on the Errors stream; they never stop the drain.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ActionType is the type of the action being processed.
	ActionType string

	// Effect names the failing effect, when one failed.
	Effect string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates a drain exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidData indicates action data the reducer could not apply.
	ErrCodeInvalidData RuntimeErrorCode = "INVALID_DATA"

	// ErrCodeReducerPanic indicates the reducer pipeline panicked.
	ErrCodeReducerPanic RuntimeErrorCode = "REDUCER_PANIC"

	// ErrCodeEffectPanic indicates an effect panicked.
	ErrCodeEffectPanic RuntimeErrorCode = "EFFECT_PANIC"

	// ErrCodeActionLog indicates the action log rejected an append.
	ErrCodeActionLog RuntimeErrorCode = "ACTION_LOG"

	// ErrCodeSubscriber indicates a stream subscriber panicked.
	ErrCodeSubscriber RuntimeErrorCode = "SUBSCRIBER"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Effect != "" {
		return fmt.Sprintf("%s: %s (action=%s, effect=%s)", e.Code, msg, e.ActionType, e.Effect)
	}
	if e.ActionType != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, msg, e.ActionType)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError reports whether err is a quota failure: either a
// StepsExceededError or a RuntimeError with ErrCodeQuotaExceeded.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	return IsStepsExceededError(err)
}

// HasCode reports whether err is a RuntimeError with code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}
