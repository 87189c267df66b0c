// Package cache holds the entity cache: an immutable mapping from entity
// name to collection.
//
// Updates return a new *Cache that shares every untouched *Collection with
// its predecessor, so subscribers can compare collection pointers to detect
// change.
package cache

import (
	"sort"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

// Cache is one version of the entity cache. Never modified after creation.
type Cache struct {
	collections map[string]*collection.Collection
}

// Empty returns a cache with no collections.
func Empty() *Cache {
	return &Cache{collections: map[string]*collection.Collection{}}
}

// New returns a cache with one empty collection per configured entity name.
func New(metadata ir.MetadataMap, creator *collection.Creator) *Cache {
	if creator == nil {
		creator = collection.NewCreator(metadata)
	}
	c := &Cache{collections: make(map[string]*collection.Collection, len(metadata))}
	for _, name := range metadata.Names() {
		c.collections[name] = creator.Create(name)
	}
	return c
}

// FromCollections builds a cache from colls. The map is copied.
func FromCollections(colls map[string]*collection.Collection) *Cache {
	c := &Cache{collections: make(map[string]*collection.Collection, len(colls))}
	for name, coll := range colls {
		c.collections[name] = coll
	}
	return c
}

// Get returns the collection for name, or a fresh empty collection when the
// cache has none. Unknown names are never an error.
func (c *Cache) Get(name string) *collection.Collection {
	if coll, ok := c.Lookup(name); ok {
		return coll
	}
	return collection.New(name)
}

// Lookup returns the stored collection for name.
func (c *Cache) Lookup(name string) (*collection.Collection, bool) {
	if c == nil {
		return nil, false
	}
	coll, ok := c.collections[name]
	return coll, ok
}

// Has reports whether the cache stores a collection for name.
func (c *Cache) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// With returns a cache where name maps to coll. Returns c itself when coll
// is already stored under name.
func (c *Cache) With(name string, coll *collection.Collection) *Cache {
	if cur, ok := c.Lookup(name); ok && cur == coll {
		return c
	}
	return c.WithAll(map[string]*collection.Collection{name: coll})
}

// WithAll returns a cache with every entry of colls applied.
func (c *Cache) WithAll(colls map[string]*collection.Collection) *Cache {
	changed := false
	for name, coll := range colls {
		if cur, ok := c.Lookup(name); !ok || cur != coll {
			changed = true
			break
		}
	}
	if !changed {
		return c
	}
	next := &Cache{collections: make(map[string]*collection.Collection, c.Len()+len(colls))}
	if c != nil {
		for name, coll := range c.collections {
			next.collections[name] = coll
		}
	}
	for name, coll := range colls {
		next.collections[name] = coll
	}
	return next
}

// Without returns a cache without the named collections.
func (c *Cache) Without(names ...string) *Cache {
	drop := false
	for _, name := range names {
		if c.Has(name) {
			drop = true
			break
		}
	}
	if !drop {
		return c
	}
	next := FromCollections(c.collections)
	for _, name := range names {
		delete(next.collections, name)
	}
	return next
}

// Names returns the stored entity names in sorted order.
func (c *Cache) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored collections.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.collections)
}

// Collections returns a copy of the name to collection map.
func (c *Cache) Collections() map[string]*collection.Collection {
	out := make(map[string]*collection.Collection, c.Len())
	if c == nil {
		return out
	}
	for name, coll := range c.collections {
		out[name] = coll
	}
	return out
}

// Snapshot returns the records of every collection in id order, keyed by
// entity name. Used for comparing and persisting cache contents.
func (c *Cache) Snapshot() map[string][]ir.Object {
	out := make(map[string][]ir.Object, c.Len())
	for _, name := range c.Names() {
		out[name] = c.collections[name].All()
	}
	return out
}
