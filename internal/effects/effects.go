// Package effects defines effects: subscribers to the action stream that
// map matching actions to at most one follow-up action.
//
// Effects never dispatch directly. The store enqueues whatever Project
// returns and reduces it after the current action completes.
package effects

import (
	"context"

	"github.com/roach88/entcache/internal/ir"
)

// Effect derives zero or one action from each matching action.
type Effect struct {
	Name string
	// Match selects the actions the effect handles.
	Match func(ir.Action) bool
	// Project returns the follow-up action, or false for none.
	Project func(ctx context.Context, a ir.Action) (ir.Action, bool)
}

// Source supplies the effects a store runs. Substituting a Source replaces
// every default effect.
type Source interface {
	Effects() []Effect
}

// Set is a fixed list of effects.
type Set []Effect

// Effects implements Source.
func (s Set) Effects() []Effect {
	return s
}

// None is a source without effects.
var None Source = Set(nil)

// PersistOps are the ops that need a data service round trip.
var PersistOps = []ir.EntityOp{
	ir.OpQueryAll,
	ir.OpQueryLoad,
	ir.OpQueryByKey,
	ir.OpQueryMany,
	ir.OpSaveAddOne,
	ir.OpSaveDeleteOne,
	ir.OpSaveUpdateOne,
	ir.OpSaveUpsertOne,
	ir.OpSaveAddMany,
	ir.OpSaveDeleteMany,
	ir.OpSaveUpdateMany,
	ir.OpSaveUpsertMany,
}

// OfOp matches entity actions whose op is in ops. Actions without the
// entity-action shape never match.
func OfOp(ops ...ir.EntityOp) func(ir.Action) bool {
	set := ir.NewOpSet(ops...)
	return func(a ir.Action) bool {
		ea, ok := ir.AsEntityAction(a)
		return ok && set.Has(ea.Op())
	}
}

// Map builds an effect from a match predicate and a projection that always
// emits.
func Map(name string, match func(ir.Action) bool, fn func(ir.Action) ir.Action) Effect {
	return Effect{
		Name:  name,
		Match: match,
		Project: func(_ context.Context, a ir.Action) (ir.Action, bool) {
			return fn(a), true
		},
	}
}
