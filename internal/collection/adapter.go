package collection

import (
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

// Update is a partial change to one entity: Changes is shallow-merged into
// the record with key ID.
type Update struct {
	ID      ir.EntityID
	Changes ir.Object
}

// ParseUpdate reads an update from {"id": <key>, "changes": {...}}.
func ParseUpdate(v ir.Value) (Update, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Update{}, fmt.Errorf("update must be an object, got %T", v)
	}
	id, err := ir.EntityIDOf(obj["id"])
	if err != nil {
		return Update{}, fmt.Errorf("update id: %w", err)
	}
	changes, ok := obj["changes"].(ir.Object)
	if !ok {
		return Update{}, fmt.Errorf("update %s: changes must be an object", id)
	}
	return Update{ID: id, Changes: changes}, nil
}

// Adapter applies mutation primitives using one entity type's metadata.
// Adapters are small values; copy them freely.
type Adapter struct {
	md ir.EntityMetadata
}

// NewAdapter returns an adapter for md.
func NewAdapter(md ir.EntityMetadata) Adapter {
	return Adapter{md: md}
}

// Metadata returns the adapter's metadata.
func (a Adapter) Metadata() ir.EntityMetadata {
	return a.md
}

// IDOf extracts a record's id.
func (a Adapter) IDOf(rec ir.Object) (ir.EntityID, error) {
	return a.md.IDOf(rec)
}

// FromRecords builds a fresh collection holding recs in the given order.
func (a Adapter) FromRecords(entityName string, recs []ir.Object) (*Collection, error) {
	return a.AddAll(New(entityName), recs)
}

// AddOne adds rec unless an entity with the same id exists.
func (a Adapter) AddOne(c *Collection, rec ir.Object) (*Collection, error) {
	return a.AddMany(c, []ir.Object{rec})
}

// AddMany adds every record whose id is not present yet.
func (a Adapter) AddMany(c *Collection, recs []ir.Object) (*Collection, error) {
	var next *Collection
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		if _, exists := c.Entities[id]; exists {
			continue
		}
		if next == nil {
			next = c.cloneData()
		}
		if _, added := next.Entities[id]; added {
			continue
		}
		next.IDs = append(next.IDs, id)
		next.Entities[id] = rec
	}
	if next == nil {
		return c, nil
	}
	return a.sorted(next), nil
}

// AddAll replaces every entity with recs and drops change tracking.
// A repeated id keeps its first position and its last value.
func (a Adapter) AddAll(c *Collection, recs []ir.Object) (*Collection, error) {
	next := c.shallow()
	next.IDs = make([]ir.EntityID, 0, len(recs))
	next.Entities = make(map[ir.EntityID]ir.Object, len(recs))
	next.ChangeState = map[ir.EntityID]ChangeState{}
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		if _, seen := next.Entities[id]; !seen {
			next.IDs = append(next.IDs, id)
		}
		next.Entities[id] = rec
	}
	return a.sorted(next), nil
}

// UpsertOne adds rec, or shallow-merges it into the existing entity.
func (a Adapter) UpsertOne(c *Collection, rec ir.Object) (*Collection, error) {
	return a.UpsertMany(c, []ir.Object{rec})
}

// UpsertMany upserts every record.
func (a Adapter) UpsertMany(c *Collection, recs []ir.Object) (*Collection, error) {
	if len(recs) == 0 {
		return c, nil
	}
	next := c.cloneData()
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		if existing, ok := next.Entities[id]; ok {
			next.Entities[id] = existing.Merge(rec)
			continue
		}
		next.IDs = append(next.IDs, id)
		next.Entities[id] = rec
	}
	return a.sorted(next), nil
}

// UpdateOne merges u.Changes into an existing entity. Unknown ids are
// ignored. Changing the key field re-keys the entity in place.
func (a Adapter) UpdateOne(c *Collection, u Update) (*Collection, error) {
	return a.UpdateMany(c, []Update{u})
}

// UpdateMany applies every update.
func (a Adapter) UpdateMany(c *Collection, updates []Update) (*Collection, error) {
	var next *Collection
	for _, u := range updates {
		src := c
		if next != nil {
			src = next
		}
		existing, ok := src.Entities[u.ID]
		if !ok {
			continue
		}
		if next == nil {
			next = c.cloneData()
		}
		merged := existing.Merge(u.Changes)
		newID, err := a.IDOf(merged)
		if err != nil {
			return c, err
		}
		if newID != u.ID {
			if _, clash := next.Entities[newID]; clash {
				return c, fmt.Errorf("update %s: new key %s already exists", u.ID, newID)
			}
			delete(next.Entities, u.ID)
			for i, id := range next.IDs {
				if id == u.ID {
					next.IDs[i] = newID
					break
				}
			}
		}
		next.Entities[newID] = merged
	}
	if next == nil {
		return c, nil
	}
	return a.sorted(next), nil
}

// RemoveOne removes the entity with id. Unknown ids are ignored.
func (a Adapter) RemoveOne(c *Collection, id ir.EntityID) *Collection {
	return a.RemoveMany(c, []ir.EntityID{id})
}

// RemoveMany removes every listed id.
func (a Adapter) RemoveMany(c *Collection, ids []ir.EntityID) *Collection {
	drop := make(map[ir.EntityID]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.Entities[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return c
	}
	next := c.shallow()
	next.IDs = make([]ir.EntityID, 0, len(c.IDs)-len(drop))
	next.Entities = make(map[ir.EntityID]ir.Object, len(c.Entities)-len(drop))
	for _, id := range c.IDs {
		if drop[id] {
			continue
		}
		next.IDs = append(next.IDs, id)
		next.Entities[id] = c.Entities[id]
	}
	return next
}

// RemoveAll empties the collection and drops change tracking.
func (a Adapter) RemoveAll(c *Collection) *Collection {
	if len(c.IDs) == 0 && len(c.ChangeState) == 0 {
		return c
	}
	next := c.shallow()
	next.IDs = []ir.EntityID{}
	next.Entities = map[ir.EntityID]ir.Object{}
	next.ChangeState = map[ir.EntityID]ChangeState{}
	return next
}

// FromEntities builds a collection from recs keyed by selectID, keeping
// record order.
func FromEntities(entityName string, recs []ir.Object, selectID string) (*Collection, error) {
	return NewAdapter(ir.EntityMetadata{EntityName: entityName, SelectID: selectID}).FromRecords(entityName, recs)
}
