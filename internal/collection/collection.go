// Package collection implements the per-entity-type keyed collection:
// ordered ids plus an id-to-record map, with copy-on-write mutation
// primitives and optional change tracking for optimistic saves.
//
// A *Collection is never modified after it is returned. Every primitive
// returns a new *Collection; callers that only read may share pointers
// freely, and pointer equality means "unchanged".
package collection

import (
	"github.com/roach88/entcache/internal/ir"
)

// ChangeType classifies an unsaved change.
type ChangeType string

const (
	// Added marks an entity created locally and not yet saved.
	Added ChangeType = "added"
	// Updated marks a locally modified entity.
	Updated ChangeType = "updated"
	// Deleted marks a locally removed entity.
	Deleted ChangeType = "deleted"
)

// ChangeState records the original value of an entity with unsaved changes.
type ChangeState struct {
	Type ChangeType `json:"type"`
	// Original is nil for Added entities.
	Original ir.Object `json:"original,omitempty"`
}

// Collection is the cached state of one entity type.
//
// Invariant: IDs holds exactly the keys of Entities, without duplicates,
// in insertion order (or SortField order when the metadata sets one).
type Collection struct {
	EntityName  string                      `json:"entity_name"`
	IDs         []ir.EntityID               `json:"ids"`
	Entities    map[ir.EntityID]ir.Object   `json:"entities"`
	Filter      string                      `json:"filter"`
	Loaded      bool                        `json:"loaded"`
	Loading     bool                        `json:"loading"`
	ChangeState map[ir.EntityID]ChangeState `json:"change_state"`
}

// New returns an empty collection for entityName.
func New(entityName string) *Collection {
	return &Collection{
		EntityName:  entityName,
		IDs:         []ir.EntityID{},
		Entities:    map[ir.EntityID]ir.Object{},
		ChangeState: map[ir.EntityID]ChangeState{},
	}
}

// Len returns the number of entities.
func (c *Collection) Len() int {
	return len(c.IDs)
}

// Lookup returns the record for id.
func (c *Collection) Lookup(id ir.EntityID) (ir.Object, bool) {
	rec, ok := c.Entities[id]
	return rec, ok
}

// All returns the records in id order.
func (c *Collection) All() []ir.Object {
	out := make([]ir.Object, 0, len(c.IDs))
	for _, id := range c.IDs {
		out = append(out, c.Entities[id])
	}
	return out
}

// HasChanges reports whether any entity has unsaved changes.
func (c *Collection) HasChanges() bool {
	return len(c.ChangeState) > 0
}

// SetLoading returns a collection with Loading set. Returns c itself when
// nothing changes.
func (c *Collection) SetLoading(loading bool) *Collection {
	if c.Loading == loading {
		return c
	}
	next := c.shallow()
	next.Loading = loading
	return next
}

// SetLoaded returns a collection with Loaded set.
func (c *Collection) SetLoaded(loaded bool) *Collection {
	if c.Loaded == loaded {
		return c
	}
	next := c.shallow()
	next.Loaded = loaded
	return next
}

// SetFilter returns a collection with Filter set.
func (c *Collection) SetFilter(filter string) *Collection {
	if c.Filter == filter {
		return c
	}
	next := c.shallow()
	next.Filter = filter
	return next
}

// SetChangeState returns a collection whose tracking is replaced by cs.
func (c *Collection) SetChangeState(cs map[ir.EntityID]ChangeState) *Collection {
	next := c.shallow()
	next.ChangeState = make(map[ir.EntityID]ChangeState, len(cs))
	for id, st := range cs {
		next.ChangeState[id] = st
	}
	return next
}

// shallow copies the struct; slices and maps are still shared.
func (c *Collection) shallow() *Collection {
	next := *c
	return &next
}

// cloneData copies ids and entities so the result can be modified.
func (c *Collection) cloneData() *Collection {
	next := c.shallow()
	next.IDs = make([]ir.EntityID, len(c.IDs), len(c.IDs)+1)
	copy(next.IDs, c.IDs)
	next.Entities = make(map[ir.EntityID]ir.Object, len(c.Entities)+1)
	for id, rec := range c.Entities {
		next.Entities[id] = rec
	}
	return next
}

// cloneChanges copies the change-state map so the result can be modified.
func (c *Collection) cloneChanges() *Collection {
	next := c.shallow()
	next.ChangeState = make(map[ir.EntityID]ChangeState, len(c.ChangeState))
	for id, st := range c.ChangeState {
		next.ChangeState[id] = st
	}
	return next
}

// Creator creates empty collections and adapters for configured entity types.
type Creator struct {
	metadata ir.MetadataMap
}

// NewCreator returns a Creator over metadata. A nil map is valid.
func NewCreator(metadata ir.MetadataMap) *Creator {
	return &Creator{metadata: metadata}
}

// Create returns an empty collection for entityName. Unknown names get the
// default empty shape; Create never fails.
func (cr *Creator) Create(entityName string) *Collection {
	return New(entityName)
}

// Adapter returns the mutation adapter for entityName.
func (cr *Creator) Adapter(entityName string) Adapter {
	if cr == nil {
		return NewAdapter(ir.EntityMetadata{EntityName: entityName})
	}
	return NewAdapter(cr.metadata.Lookup(entityName))
}

// Metadata returns the metadata the creator was built with.
func (cr *Creator) Metadata() ir.MetadataMap {
	if cr == nil {
		return nil
	}
	return cr.metadata
}
