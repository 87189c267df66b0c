package collection

import (
	"github.com/roach88/entcache/internal/ir"
)

// Change tracking records the original value of an entity the first time
// it is changed locally, so the change can later be committed (forgotten)
// or undone (reverted). Tracking is skipped when the metadata disables it
// or the strategy is IgnoreChanges.

func (a Adapter) tracks(s ir.MergeStrategy) bool {
	return !a.md.NoChangeTracking && s != ir.IgnoreChanges
}

// TrackAddMany records Added for every record that is not in c. A record
// re-added after a local delete becomes Updated against its original.
func (a Adapter) TrackAddMany(c *Collection, recs []ir.Object, s ir.MergeStrategy) (*Collection, error) {
	if !a.tracks(s) || len(recs) == 0 {
		return c, nil
	}
	next := c.cloneChanges()
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		prior, tracked := next.ChangeState[id]
		switch {
		case !tracked:
			if _, exists := c.Entities[id]; !exists {
				next.ChangeState[id] = ChangeState{Type: Added}
			}
		case prior.Type == Deleted:
			next.ChangeState[id] = ChangeState{Type: Updated, Original: prior.Original}
		}
	}
	return next, nil
}

// TrackUpdateMany records Updated with the current value for every
// existing, untracked entity named by updates.
func (a Adapter) TrackUpdateMany(c *Collection, updates []Update, s ir.MergeStrategy) *Collection {
	if !a.tracks(s) || len(updates) == 0 {
		return c
	}
	next := c.cloneChanges()
	for _, u := range updates {
		a.trackUpdate(next, c, u.ID)
	}
	return next
}

// TrackUpsertMany tracks existing records as updates and new ones as adds.
func (a Adapter) TrackUpsertMany(c *Collection, recs []ir.Object, s ir.MergeStrategy) (*Collection, error) {
	if !a.tracks(s) || len(recs) == 0 {
		return c, nil
	}
	next := c.cloneChanges()
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		if _, exists := c.Entities[id]; exists {
			a.trackUpdate(next, c, id)
			continue
		}
		if _, tracked := next.ChangeState[id]; !tracked {
			next.ChangeState[id] = ChangeState{Type: Added}
		}
	}
	return next, nil
}

func (a Adapter) trackUpdate(next, c *Collection, id ir.EntityID) {
	if _, tracked := next.ChangeState[id]; tracked {
		return
	}
	if rec, exists := c.Entities[id]; exists {
		next.ChangeState[id] = ChangeState{Type: Updated, Original: rec}
	}
}

// TrackDeleteMany records Deleted for existing entities. Deleting an entity
// that was only added locally forgets it entirely.
func (a Adapter) TrackDeleteMany(c *Collection, ids []ir.EntityID, s ir.MergeStrategy) *Collection {
	if !a.tracks(s) || len(ids) == 0 {
		return c
	}
	next := c.cloneChanges()
	for _, id := range ids {
		prior, tracked := next.ChangeState[id]
		switch {
		case tracked && prior.Type == Added:
			delete(next.ChangeState, id)
		case tracked:
			next.ChangeState[id] = ChangeState{Type: Deleted, Original: prior.Original}
		default:
			if rec, exists := c.Entities[id]; exists {
				next.ChangeState[id] = ChangeState{Type: Deleted, Original: rec}
			}
		}
	}
	return next
}

// CommitOne forgets the tracked change of id.
func (a Adapter) CommitOne(c *Collection, id ir.EntityID) *Collection {
	return a.CommitMany(c, []ir.EntityID{id})
}

// CommitMany forgets the tracked changes of ids.
func (a Adapter) CommitMany(c *Collection, ids []ir.EntityID) *Collection {
	var next *Collection
	for _, id := range ids {
		if _, tracked := c.ChangeState[id]; !tracked {
			continue
		}
		if next == nil {
			next = c.cloneChanges()
		}
		delete(next.ChangeState, id)
	}
	if next == nil {
		return c
	}
	return next
}

// CommitAll forgets every tracked change.
func (a Adapter) CommitAll(c *Collection) *Collection {
	if len(c.ChangeState) == 0 {
		return c
	}
	next := c.shallow()
	next.ChangeState = map[ir.EntityID]ChangeState{}
	return next
}

// UndoOne reverts the tracked change of id.
func (a Adapter) UndoOne(c *Collection, id ir.EntityID) *Collection {
	return a.UndoMany(c, []ir.EntityID{id})
}

// UndoMany reverts the tracked changes of ids: added entities are removed,
// updated and deleted entities get their original value back.
func (a Adapter) UndoMany(c *Collection, ids []ir.EntityID) *Collection {
	var next *Collection
	for _, id := range ids {
		st, tracked := c.ChangeState[id]
		if !tracked {
			continue
		}
		if next == nil {
			next = c.cloneData().cloneChanges()
		}
		delete(next.ChangeState, id)
		switch st.Type {
		case Added:
			if _, ok := next.Entities[id]; ok {
				delete(next.Entities, id)
				next.IDs = removeID(next.IDs, id)
			}
		case Updated, Deleted:
			if st.Original == nil {
				continue
			}
			if _, ok := next.Entities[id]; !ok {
				next.IDs = append(next.IDs, id)
			}
			next.Entities[id] = st.Original
		}
	}
	if next == nil {
		return c
	}
	return a.sorted(next)
}

// UndoAll reverts every tracked change.
func (a Adapter) UndoAll(c *Collection) *Collection {
	ids := make([]ir.EntityID, 0, len(c.ChangeState))
	for id := range c.ChangeState {
		ids = append(ids, id)
	}
	return a.UndoMany(c, ids)
}

// MergeQueryResults merges server records into c.
//
//   - PreserveChanges (default): records whose id has unsaved changes are skipped
//   - OverwriteChanges: every record is written and its tracking dropped
//   - IgnoreChanges: every record is written, tracking untouched
func (a Adapter) MergeQueryResults(c *Collection, recs []ir.Object, s ir.MergeStrategy) (*Collection, error) {
	if s == "" {
		s = ir.PreserveChanges
	}
	return a.mergeRecords(c, recs, s)
}

// MergeSaveResults merges the records a data service returned for a save.
// OverwriteChanges is the default: the server value wins and the local
// change is committed.
func (a Adapter) MergeSaveResults(c *Collection, recs []ir.Object, s ir.MergeStrategy) (*Collection, error) {
	if s == "" {
		s = ir.OverwriteChanges
	}
	return a.mergeRecords(c, recs, s)
}

// MergeSaveUpdates applies updates confirmed by a data service.
func (a Adapter) MergeSaveUpdates(c *Collection, updates []Update, s ir.MergeStrategy) (*Collection, error) {
	if s == "" {
		s = ir.OverwriteChanges
	}
	keep := updates
	if s == ir.PreserveChanges {
		keep = make([]Update, 0, len(updates))
		for _, u := range updates {
			if _, tracked := c.ChangeState[u.ID]; !tracked {
				keep = append(keep, u)
			}
		}
	}
	next, err := a.UpdateMany(c, keep)
	if err != nil {
		return c, err
	}
	if s == ir.OverwriteChanges {
		ids := make([]ir.EntityID, 0, len(keep))
		for _, u := range keep {
			ids = append(ids, u.ID)
		}
		next = a.CommitMany(next, ids)
	}
	return next, nil
}

// MergeSaveDeletes removes entities a data service confirmed deleted.
// Tracking for them is dropped unless s is IgnoreChanges.
func (a Adapter) MergeSaveDeletes(c *Collection, ids []ir.EntityID, s ir.MergeStrategy) *Collection {
	next := a.RemoveMany(c, ids)
	if s != ir.IgnoreChanges {
		next = a.CommitMany(next, ids)
	}
	return next
}

func (a Adapter) mergeRecords(c *Collection, recs []ir.Object, s ir.MergeStrategy) (*Collection, error) {
	if len(recs) == 0 {
		return c, nil
	}
	var next *Collection
	var committed []ir.EntityID
	for _, rec := range recs {
		id, err := a.IDOf(rec)
		if err != nil {
			return c, err
		}
		if _, tracked := c.ChangeState[id]; tracked {
			switch s {
			case ir.PreserveChanges:
				continue
			case ir.OverwriteChanges:
				committed = append(committed, id)
			}
		}
		if next == nil {
			next = c.cloneData()
		}
		if _, exists := next.Entities[id]; !exists {
			next.IDs = append(next.IDs, id)
		}
		next.Entities[id] = rec
	}
	if next == nil {
		return c, nil
	}
	return a.CommitMany(a.sorted(next), committed), nil
}

func removeID(ids []ir.EntityID, id ir.EntityID) []ir.EntityID {
	for i, cur := range ids {
		if cur == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
