package engine

import (
	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/reducer"
)

// Replay folds actions through r starting at initial. Effects do not run:
// a recorded log already contains every action the effects derived.
func Replay(r reducer.Reducer, initial *cache.Cache, actions []ir.Action) *cache.Cache {
	state := initial
	if state == nil {
		state = cache.Empty()
	}
	for _, a := range actions {
		if next := r(state, a); next != nil {
			state = next
		}
	}
	return state
}
