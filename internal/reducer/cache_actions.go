package reducer

import (
	"fmt"
	"sort"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

func (r *entityCacheReducer) reduceCacheAction(c *cache.Cache, a ir.CacheAction) (*cache.Cache, error) {
	switch a.Op {
	case ir.CacheClearCollections:
		names := a.Names
		if len(names) == 0 {
			names = c.Names()
		}
		cleared := make(map[string]*collection.Collection, len(names))
		for _, name := range names {
			cleared[name] = r.creator.Create(name)
		}
		return c.WithAll(cleared), nil

	case ir.CacheLoadCollections:
		loaded, err := r.buildCollections(a.Collections)
		if err != nil {
			return c, err
		}
		return c.WithAll(loaded), nil

	case ir.CacheMergeQuerySet:
		merged := make(map[string]*collection.Collection, len(a.Collections))
		for _, name := range sortedNames(a.Collections) {
			coll, ok := c.Lookup(name)
			if !ok {
				coll = r.creator.Create(name)
			}
			next, err := r.creator.Adapter(name).MergeQueryResults(coll, a.Collections[name], a.MergeStrategy)
			if err != nil {
				return c, fmt.Errorf("merge %s: %w", name, err)
			}
			merged[name] = next.SetLoading(false)
		}
		return c.WithAll(merged), nil

	case ir.CacheSetEntityCache:
		colls, err := r.buildCollections(a.Collections)
		if err != nil {
			return c, err
		}
		// Configured entities always keep a collection.
		for _, name := range r.creator.Metadata().Names() {
			if _, ok := colls[name]; !ok {
				colls[name] = r.creator.Create(name)
			}
		}
		return cache.FromCollections(colls), nil
	}
	return c, nil
}

// buildCollections creates a loaded collection per entry, keeping record
// order.
func (r *entityCacheReducer) buildCollections(data map[string][]ir.Object) (map[string]*collection.Collection, error) {
	out := make(map[string]*collection.Collection, len(data))
	for _, name := range sortedNames(data) {
		coll, err := r.creator.Adapter(name).FromRecords(name, data[name])
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		out[name] = coll.SetLoaded(true)
	}
	return out, nil
}

func sortedNames(m map[string][]ir.Object) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
