package harness

import (
	"errors"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
)

// TraceEvent is one processed flow action, as read back from the action
// log.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`
	Op     string `json:"op,omitempty"`

	// Action is the encoded action.
	Action ir.Object `json:"action"`
}

// Body returns the entity action data or plain action payload, or nil.
func (e TraceEvent) Body() ir.Value {
	if data, ok := e.Action["data"]; ok {
		return data
	}
	return e.Action["payload"]
}

// Failure is a runtime failure published by the store during the run.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// failureOf classifies a store error.
func failureOf(err error) Failure {
	var rt *engine.RuntimeError
	if errors.As(err, &rt) {
		return Failure{Code: string(rt.Code), Message: err.Error()}
	}
	return Failure{Message: err.Error()}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace contains the flow actions in processing order, including
	// actions emitted by effects.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures are the runtime failures of setup and flow.
	Failures []Failure `json:"failures,omitempty"`

	// State is the final cache.
	State *cache.Cache `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  cache.Empty(),
	}
}

// AddError adds an assertion error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a logged action to the trace.
func (r *Result) AddTrace(seq int64, a ir.Action) error {
	encoded, err := ir.EncodeAction(a)
	if err != nil {
		return err
	}
	event := TraceEvent{
		Seq:    seq,
		Type:   a.Type(),
		Action: encoded,
	}
	if kind, ok := encoded["kind"].(ir.String); ok {
		event.Kind = string(kind)
	}
	if ea, ok := ir.AsEntityAction(a); ok {
		event.Entity = ea.EntityName()
		event.Op = string(ea.Op())
	}
	r.Trace = append(r.Trace, event)
	return nil
}
