package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entcache/internal/ir"
)

// Scenario defines an entity-cache test scenario: seed records, a flow of
// dispatched actions and assertions on the resulting action trace and
// final cache.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Entities lists CUE entity declaration files.
	// Paths are relative to the scenario file location.
	Entities []string `yaml:"entities,omitempty"`

	// CorrelationID, when set, is used for every generated correlation id.
	// Otherwise ids are numbered "corr-1", "corr-2", ...
	CorrelationID string `yaml:"correlation_id,omitempty"`

	// MaxSteps overrides the per-dispatch step quota.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Seed records are written to the data service before any dispatch,
	// keyed by entity name.
	Seed map[string][]map[string]any `yaml:"seed,omitempty"`

	// Setup actions run before the flow. They are left out of the trace.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the dispatched actions under test.
	Flow []Step `yaml:"flow"`

	// Effects are extra expression-matched effects that run after the
	// data-service effects.
	Effects []EffectSpec `yaml:"effects,omitempty"`

	// Assertions validate the trace, the final cache and runtime failures.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one dispatched action. Exactly one of Entity, Cache or Action
// selects the action kind.
type Step struct {
	// Entity names the target collection of an entity action.
	Entity string `yaml:"entity,omitempty"`

	// Op is the entity op, e.g. "entity/query-all".
	Op string `yaml:"op,omitempty"`

	// Data is the entity action data.
	Data any `yaml:"data,omitempty"`

	Optimistic    bool   `yaml:"optimistic,omitempty"`
	MergeStrategy string `yaml:"merge_strategy,omitempty"`
	Tag           string `yaml:"tag,omitempty"`
	Skip          bool   `yaml:"skip,omitempty"`

	// Cache is the cache-wide op, e.g. "entity-cache/clear-collections".
	Cache string `yaml:"cache,omitempty"`

	// Names are the collections a clear-collections action empties.
	Names []string `yaml:"names,omitempty"`

	// Collections are the records of load, merge and set cache actions.
	Collections map[string][]map[string]any `yaml:"collections,omitempty"`

	// Action is the type of a plain action.
	Action string `yaml:"action,omitempty"`

	// Payload is the plain action payload.
	Payload any `yaml:"payload,omitempty"`
}

// EffectSpec declares an effect driven by expressions over the encoded
// action (fields kind, action_type, entity_name, entity_op, data, payload
// and the rest of the encoded envelope).
type EffectSpec struct {
	Name string `yaml:"name"`

	// When is a boolean expression selecting the actions the effect handles.
	When string `yaml:"when"`

	// Emit is the action the effect produces.
	Emit Step `yaml:"emit"`

	// DataExpr, when set, computes the emitted action's data (or payload
	// for plain actions) from the triggering action.
	DataExpr string `yaml:"data_expr,omitempty"`
}

// Assertion validates trace, final state or failures.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an action type appears, optionally with data
	// - "trace_order": Check action types appear in order
	// - "trace_count": Check an action type appears exactly N times
	// - "final_state": Check one collection of the final cache
	// - "error_count": Check the number of runtime failures
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Data is the expected action data or payload (trace_contains).
	// Subset match - only specified fields are validated.
	Data any `yaml:"data,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count, error_count).
	Count int `yaml:"count,omitempty"`

	// Entity is the collection name (final_state).
	Entity string `yaml:"entity,omitempty"`

	// IDs is the exact expected id order (final_state).
	IDs []string `yaml:"ids,omitempty"`

	// Expect maps ids to expected record fields (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]map[string]any `yaml:"expect,omitempty"`

	// Absent lists ids that must not be cached (final_state).
	Absent []string `yaml:"absent,omitempty"`

	// Changed is the exact set of ids with unsaved changes (final_state).
	Changed []string `yaml:"changed,omitempty"`

	Loaded  *bool `yaml:"loaded,omitempty"`
	Loading *bool `yaml:"loading,omitempty"`

	// Code restricts error_count to one runtime error code.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertErrorCount    = "error_count"
)

// LoadScenario reads and parses a scenario YAML file, resolving entity
// paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving entity paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve entity paths BEFORE validation
	for i, p := range scenario.Entities {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Entities[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative")
	}

	for _, p := range s.Entities {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("entity file not found: %s", p)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, eff := range s.Effects {
		if eff.Name == "" {
			return fmt.Errorf("effects[%d]: name is required", i)
		}
		if eff.When == "" {
			return fmt.Errorf("effects[%d]: when is required", i)
		}
		if err := validateStep(eff.Emit); err != nil {
			return fmt.Errorf("effects[%d].emit: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step selects exactly one action kind and
// carries what that kind needs.
func validateStep(step Step) error {
	kinds := 0
	for _, set := range []bool{step.Entity != "", step.Cache != "", step.Action != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return fmt.Errorf("exactly one of entity, cache or action is required")
	}

	if !ir.ValidMergeStrategies[ir.MergeStrategy(step.MergeStrategy)] {
		return fmt.Errorf("unknown merge_strategy %q", step.MergeStrategy)
	}

	switch {
	case step.Entity != "":
		if step.Op == "" {
			return fmt.Errorf("op is required for entity %s", step.Entity)
		}
	case step.Cache != "":
		if !validCacheOps[ir.CacheOp(step.Cache)] {
			return fmt.Errorf("unknown cache op %q", step.Cache)
		}
	}
	return nil
}

var validCacheOps = map[ir.CacheOp]bool{
	ir.CacheClearCollections: true,
	ir.CacheLoadCollections:  true,
	ir.CacheMergeQuerySet:    true,
	ir.CacheSetEntityCache:   true,
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertFinalState:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for final_state", index)
		}
	case AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
