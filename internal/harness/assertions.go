package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Type)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an action of the given
// type whose data matches (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	var want ir.Value
	if assertion.Data != nil {
		var err error
		if want, err = ir.FromAny(assertion.Data); err != nil {
			return fmt.Errorf("trace_contains data: %w", err)
		}
	}

	for _, event := range trace {
		if event.Type == assertion.Action && (want == nil || matchValue(event.Body(), want)) {
			return nil
		}
	}

	expected := fmt.Sprintf("action %s", assertion.Action)
	if want != nil {
		expected += fmt.Sprintf(" with data %s", describe(want))
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Walk the trace once, advancing through the expected list.
	next := 0
	for _, event := range trace {
		if next < len(assertion.Actions) && event.Type == assertion.Actions[next] {
			next++
		}
	}
	if next == len(assertion.Actions) {
		return nil
	}

	missing := assertion.Actions[next]
	actual := fmt.Sprintf("missing action: %s", missing)
	if countType(trace, missing) > 0 {
		actual = fmt.Sprintf("%s does not follow %s", missing, assertion.Actions[next-1])
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := countType(trace, assertion.Action)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func countType(trace []TraceEvent, actionType string) int {
	count := 0
	for _, event := range trace {
		if event.Type == actionType {
			count++
		}
	}
	return count
}

// assertFinalState checks one collection of the final cache. Only the
// fields set on the assertion are checked.
func assertFinalState(state *cache.Cache, assertion Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s: %s", assertion.Entity, expected),
			Actual:   actual,
		}
	}

	coll, ok := state.Lookup(assertion.Entity)
	if !ok {
		return fail("collection to exist", fmt.Sprintf("collection not in cache (have %v)", state.Names()))
	}

	if assertion.IDs != nil {
		ids := make([]string, len(coll.IDs))
		for i, id := range coll.IDs {
			ids[i] = string(id)
		}
		if !equalStrings(ids, assertion.IDs) {
			return fail(fmt.Sprintf("ids %v", assertion.IDs), fmt.Sprintf("ids %v", ids))
		}
	}

	if assertion.Loaded != nil && coll.Loaded != *assertion.Loaded {
		return fail(fmt.Sprintf("loaded=%t", *assertion.Loaded), fmt.Sprintf("loaded=%t", coll.Loaded))
	}
	if assertion.Loading != nil && coll.Loading != *assertion.Loading {
		return fail(fmt.Sprintf("loading=%t", *assertion.Loading), fmt.Sprintf("loading=%t", coll.Loading))
	}

	for _, id := range sortedKeys(assertion.Expect) {
		want, err := ir.ObjectFromAny(assertion.Expect[id])
		if err != nil {
			return fmt.Errorf("final_state expect %s: %w", id, err)
		}
		rec, ok := coll.Lookup(ir.EntityID(id))
		if !ok {
			return fail(fmt.Sprintf("entity %s to exist", id), "entity not found")
		}
		if !matchValue(rec, want) {
			return fail(fmt.Sprintf("entity %s matching %s", id, describe(want)), describe(rec))
		}
	}

	for _, id := range assertion.Absent {
		if _, ok := coll.Lookup(ir.EntityID(id)); ok {
			return fail(fmt.Sprintf("entity %s to be absent", id), "entity present")
		}
	}

	if assertion.Changed != nil {
		changed := make([]string, 0, len(coll.ChangeState))
		for id := range coll.ChangeState {
			changed = append(changed, string(id))
		}
		sort.Strings(changed)
		want := append([]string(nil), assertion.Changed...)
		sort.Strings(want)
		if !equalStrings(changed, want) {
			return fail(fmt.Sprintf("changed ids %v", want), fmt.Sprintf("changed ids %v", changed))
		}
	}

	return nil
}

// assertErrorCount checks the number of runtime failures, optionally of
// one code.
func assertErrorCount(failures []Failure, assertion Assertion) error {
	count := 0
	for _, f := range failures {
		if assertion.Code == "" || f.Code == assertion.Code {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}

	what := "runtime failures"
	if assertion.Code != "" {
		what = assertion.Code + " failures"
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.Message
	}
	return &AssertionError{
		Type:     AssertErrorCount,
		Expected: fmt.Sprintf("%d %s", assertion.Count, what),
		Actual:   fmt.Sprintf("%d (all failures: %v)", count, msgs),
	}
}

// matchValue reports whether actual matches expected. Objects match by
// subset; arrays match element-wise and must have equal length.
func matchValue(actual, expected ir.Value) bool {
	switch want := expected.(type) {
	case ir.Object:
		got, ok := actual.(ir.Object)
		if !ok {
			return false
		}
		for key, wantVal := range want {
			gotVal, exists := got[key]
			if !exists || !matchValue(gotVal, wantVal) {
				return false
			}
		}
		return true
	case ir.Array:
		got, ok := actual.(ir.Array)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !matchValue(got[i], want[i]) {
				return false
			}
		}
		return true
	}
	return ir.Equal(actual, expected)
}

func describe(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertErrorCount:
			err = assertErrorCount(result.Failures, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
