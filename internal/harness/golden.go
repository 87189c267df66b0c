package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/entcache/internal/ir"
)

// TraceSnapshot captures the trace and final cache of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string][]ir.Object
}

// toCanonical converts a TraceSnapshot to an ir.Object for canonical JSON
// serialization.
func (s *TraceSnapshot) toCanonical() ir.Object {
	trace := make(ir.Array, len(s.Trace))
	for i, event := range s.Trace {
		trace[i] = ir.Object{
			"seq":    ir.Int(event.Seq),
			"action": event.Action,
		}
	}

	state := make(ir.Object, len(s.State))
	for name, recs := range s.State {
		arr := make(ir.Array, len(recs))
		for i, rec := range recs {
			arr[i] = rec
		}
		state[name] = arr
	}

	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"trace":         trace,
		"state":         state,
	}
}

// Marshal returns the canonical JSON of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonical())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State.Snapshot(),
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
