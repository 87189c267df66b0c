package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/compiler"
	"github.com/roach88/entcache/internal/di"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/store"
	"github.com/roach88/entcache/internal/testutil"
)

// Harness is the test execution engine for one scenario run.
// It owns a fresh in-memory SQLite store that serves as both the data
// service and the action log.
type Harness struct {
	store    *store.Store
	entities *store.Entities
	specs    map[string]*compiler.EntitySpec
	factory  *ir.EntityActionFactory
	engine   *engine.Store

	mu       sync.Mutex
	failures []Failure
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// deterministic correlation-id generator and a clock starting at zero, so
// the same scenario always produces the same trace.
//
// Execution flow:
//  1. Compile the entity declarations
//  2. Seed the entity table
//  3. Dispatch setup steps, then flow steps
//  4. Read the flow's actions back from the action log as the trace
//  5. Evaluate assertions against trace, final cache and failures
//
// A returned error means the scenario could not run; assertion failures
// are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	specList, err := compiler.CompileFiles(scenario.Entities...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile entities: %w", err)
	}
	if verrs := compiler.Validate(specList); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid entities: %w", verrs[0])
	}
	md := compiler.MetadataMap(specList)

	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		entities: st.Entities(md),
		specs:    make(map[string]*compiler.EntitySpec, len(specList)),
		factory:  ir.NewEntityActionFactory(idGenerator(scenario.CorrelationID)),
	}
	for _, spec := range specList {
		h.specs[spec.Name] = spec
	}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed entities: %w", err)
	}

	scenarioEffects, err := compileEffects(scenario.Effects, h.factory)
	if err != nil {
		return nil, err
	}
	creator := collection.NewCreator(md)
	src := append(effects.Set{}, effects.NewEntityEffects(h.entities, h.factory, creator).Effects()...)
	src = append(src, scenarioEffects...)

	container := di.NewContainer()
	container.ProvideValue(di.TokenActionFactory, h.factory)
	container.ProvideValue(di.TokenCollectionCreator, creator)

	opts := []engine.Option{
		engine.WithActionLog(st),
		engine.WithFailureHandler(h.recordFailure),
	}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	h.engine, err = engine.Build(engine.Config{EntityMetadata: md, Effects: src}, container, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	defer h.engine.Close()

	if err := h.dispatchAll(ctx, "setup", scenario.Setup); err != nil {
		return nil, err
	}
	setupSeq, err := st.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read action log: %w", err)
	}

	if err := h.dispatchAll(ctx, "flow", scenario.Flow); err != nil {
		return nil, err
	}

	result := NewResult()
	logged, err := st.ReadActionsAfter(ctx, setupSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to read action log: %w", err)
	}
	for _, la := range logged {
		if err := result.AddTrace(la.Seq, la.Action); err != nil {
			return nil, fmt.Errorf("failed to trace seq %d: %w", la.Seq, err)
		}
	}
	result.State = h.engine.State()
	result.Failures = h.Failures()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"trace", len(result.Trace),
		"failures", len(result.Failures),
		"pass", result.Pass,
	)
	return result, nil
}

// idGenerator returns the correlation-id generator for a run.
func idGenerator(fixed string) ir.CorrelationIDGenerator {
	if fixed != "" {
		return testutil.NewFixedGenerator(fixed)
	}
	return testutil.NewCountingGenerator("corr")
}

// seed writes the seed records in entity-name order. Records of declared
// entities are checked against their field schema.
func (h *Harness) seed(ctx context.Context, seed map[string][]map[string]any) error {
	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	return h.entities.InTx(ctx, func(ds effects.DataService) error {
		for _, name := range names {
			for i, raw := range seed[name] {
				rec, err := ir.ObjectFromAny(raw)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", name, i, err)
				}
				if spec, ok := h.specs[name]; ok {
					if verrs := compiler.ValidateRecord(spec, rec); len(verrs) > 0 {
						return fmt.Errorf("%s[%d]: %w", name, i, verrs[0])
					}
				}
				if _, err := ds.Add(ctx, name, rec); err != nil {
					return fmt.Errorf("%s[%d]: %w", name, i, err)
				}
			}
		}
		return nil
	})
}

// dispatchAll dispatches steps in order. A quota stop is a runtime failure
// recorded by the failure handler, not a run error.
func (h *Harness) dispatchAll(ctx context.Context, phase string, steps []Step) error {
	for i, step := range steps {
		a, err := step.toAction(h.factory)
		if err != nil {
			return fmt.Errorf("%s step %d: %w", phase, i, err)
		}
		if err := h.engine.Dispatch(ctx, a); err != nil && !engine.IsStepsExceededError(err) {
			return fmt.Errorf("%s step %d: dispatch %s: %w", phase, i, a.Type(), err)
		}
	}
	return nil
}

func (h *Harness) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, failureOf(err))
}

// Failures returns the runtime failures recorded so far.
func (h *Harness) Failures() []Failure {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Failure(nil), h.failures...)
}

// toAction builds the action a step describes.
func (s Step) toAction(factory *ir.EntityActionFactory) (ir.Action, error) {
	switch {
	case s.Entity != "":
		var opts []ir.ActionOption
		if s.Data != nil {
			data, err := ir.FromAny(s.Data)
			if err != nil {
				return nil, fmt.Errorf("data: %w", err)
			}
			opts = append(opts, ir.WithData(data))
		}
		opts = append(opts,
			ir.WithOptimistic(s.Optimistic),
			ir.WithMergeStrategy(ir.MergeStrategy(s.MergeStrategy)),
			ir.WithTag(s.Tag),
			ir.WithSkip(s.Skip),
		)
		return factory.Create(s.Entity, ir.EntityOp(s.Op), opts...), nil

	case s.Cache != "":
		ca := ir.CacheAction{
			Op:            ir.CacheOp(s.Cache),
			Names:         s.Names,
			MergeStrategy: ir.MergeStrategy(s.MergeStrategy),
			Tag:           s.Tag,
		}
		if len(s.Collections) > 0 {
			ca.Collections = make(map[string][]ir.Object, len(s.Collections))
			for name, raws := range s.Collections {
				recs := make([]ir.Object, 0, len(raws))
				for i, raw := range raws {
					rec, err := ir.ObjectFromAny(raw)
					if err != nil {
						return nil, fmt.Errorf("collections.%s[%d]: %w", name, i, err)
					}
					recs = append(recs, rec)
				}
				ca.Collections[name] = recs
			}
		}
		return ca, nil

	case s.Action != "":
		var payload ir.Value
		if s.Payload != nil {
			var err error
			if payload, err = ir.FromAny(s.Payload); err != nil {
				return nil, fmt.Errorf("payload: %w", err)
			}
		}
		return ir.NewAction(s.Action, payload), nil
	}
	return nil, fmt.Errorf("step selects no action kind")
}
