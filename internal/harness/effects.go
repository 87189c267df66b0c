package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
)

// exprEffect is a compiled EffectSpec.
type exprEffect struct {
	spec    EffectSpec
	when    *vm.Program
	data    *vm.Program
	factory *ir.EntityActionFactory
}

// compileEffects compiles the scenario effects in declaration order.
func compileEffects(specs []EffectSpec, factory *ir.EntityActionFactory) ([]effects.Effect, error) {
	out := make([]effects.Effect, 0, len(specs))
	for i, spec := range specs {
		ee := &exprEffect{spec: spec, factory: factory}

		var err error
		if ee.when, err = compileExpr(spec.When); err != nil {
			return nil, fmt.Errorf("effects[%d] %s: when: %w", i, spec.Name, err)
		}
		if spec.DataExpr != "" {
			if spec.Emit.Cache != "" {
				return nil, fmt.Errorf("effects[%d] %s: data_expr cannot build a cache action", i, spec.Name)
			}
			if ee.data, err = compileExpr(spec.DataExpr); err != nil {
				return nil, fmt.Errorf("effects[%d] %s: data_expr: %w", i, spec.Name, err)
			}
		}

		out = append(out, effects.Effect{
			Name:    spec.Name,
			Match:   ee.match,
			Project: ee.project,
		})
	}
	return out, nil
}

func compileExpr(src string) (*vm.Program, error) {
	return expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
}

// actionEnv is the expression environment of an action: its encoded
// fields as plain Go values. The type is also bound as action_type since
// type is an expr builtin.
func actionEnv(a ir.Action) (map[string]any, error) {
	encoded, err := ir.EncodeAction(a)
	if err != nil {
		return nil, err
	}
	env, _ := ir.ToAny(encoded).(map[string]any)
	env["action_type"] = a.Type()
	return env, nil
}

// match reports whether the when expression holds for a. Evaluation
// errors count as no match.
func (e *exprEffect) match(a ir.Action) bool {
	env, err := actionEnv(a)
	if err != nil {
		return false
	}
	out, err := expr.Run(e.when, env)
	if err != nil {
		slog.Debug("effect predicate failed",
			"effect", e.spec.Name,
			"type", a.Type(),
			"error", err,
		)
		return false
	}
	ok, isBool := out.(bool)
	return isBool && ok
}

func (e *exprEffect) project(_ context.Context, a ir.Action) (ir.Action, bool) {
	emit := e.spec.Emit
	if e.data != nil {
		env, err := actionEnv(a)
		if err != nil {
			return nil, false
		}
		out, err := expr.Run(e.data, env)
		if err != nil {
			slog.Warn("effect data expression failed",
				"effect", e.spec.Name,
				"type", a.Type(),
				"error", err,
			)
			return nil, false
		}
		if emit.Entity != "" {
			emit.Data = out
		} else {
			emit.Payload = out
		}
	}

	next, err := emit.toAction(e.factory)
	if err != nil {
		slog.Warn("effect emitted invalid action",
			"effect", e.spec.Name,
			"type", a.Type(),
			"error", err,
		)
		return nil, false
	}
	return next, true
}
