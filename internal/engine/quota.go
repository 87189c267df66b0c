package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the actions processed by one drain and enforces a
// maximum.
//
// Effects that keep answering their own output (A → B → A → ...) would
// otherwise keep the drainer busy forever.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
// A limit <= 0 disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step. Returns *StepsExceededError once the limit is
// passed.
func (q *QuotaEnforcer) Check(origin string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Origin: origin,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned by Dispatch when one drain processes more
// actions than the quota allows. The remaining queued actions are dropped.
type StepsExceededError struct {
	Origin string // type of the action whose dispatch started the drain
	Steps  int
	Limit  int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("dispatch of %q exceeded max steps quota: %d steps > %d limit",
		e.Origin, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
