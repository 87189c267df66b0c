// Package reducer implements the reducer pipeline: the base entity-cache
// reducer, the per-collection op reducer, and meta-reducer composition.
package reducer

import (
	"log/slog"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

// Reducer computes the next cache version for an action. It must not modify
// its input; returning the input pointer means nothing changed.
type Reducer func(*cache.Cache, ir.Action) *cache.Cache

// MetaReducer wraps a reducer with cross-cutting behavior. It may call
// through, call through conditionally, or return a different cache without
// calling through.
type MetaReducer func(Reducer) Reducer

// Compose wraps base with metas so that metas[0] is outermost:
// Compose([m1, m2], base) == m1(m2(base)).
func Compose(metas []MetaReducer, base Reducer) Reducer {
	r := base
	for i := len(metas) - 1; i >= 0; i-- {
		if metas[i] == nil {
			continue
		}
		r = metas[i](r)
	}
	return r
}

// ErrorHandler receives actions whose data could not be applied.
type ErrorHandler func(a ir.Action, err error)

// EntityCacheReducerFactory builds the base entity-cache reducer.
type EntityCacheReducerFactory struct {
	Creator  *collection.Creator
	Metadata ir.MetadataMap
	// OnError is called when action data is malformed. The cache is left
	// unchanged for that action. Defaults to a warning log.
	OnError ErrorHandler
}

// Create returns the base reducer.
func (f EntityCacheReducerFactory) Create() Reducer {
	creator := f.Creator
	if creator == nil {
		creator = collection.NewCreator(f.Metadata)
	}
	onError := f.OnError
	if onError == nil {
		onError = func(a ir.Action, err error) {
			slog.Warn("action data rejected",
				"type", a.Type(),
				"error", err,
			)
		}
	}
	ec := &entityCacheReducer{
		creator:    creator,
		collection: &CollectionReducer{creator: creator},
		onError:    onError,
	}
	return ec.reduce
}

type entityCacheReducer struct {
	creator    *collection.Creator
	collection *CollectionReducer
	onError    ErrorHandler
}

func (r *entityCacheReducer) reduce(c *cache.Cache, a ir.Action) *cache.Cache {
	if c == nil {
		c = cache.New(r.creator.Metadata(), r.creator)
	}
	if ca, ok := ir.AsCacheAction(a); ok {
		next, err := r.reduceCacheAction(c, ca)
		if err != nil {
			r.onError(a, err)
			return c
		}
		return next
	}
	ea, ok := ir.AsEntityAction(a)
	if !ok || ea.Payload.Skip {
		return c
	}

	name := ea.EntityName()
	coll, stored := c.Lookup(name)
	if !stored {
		coll = r.creator.Create(name)
	}
	next, err := r.collection.Reduce(coll, ea)
	if err != nil {
		r.onError(a, err)
		next = coll
	}
	if stored && next == coll {
		return c
	}
	return c.With(name, next)
}
