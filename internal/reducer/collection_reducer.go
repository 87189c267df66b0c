package reducer

import (
	"fmt"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

// CollectionReducer applies one entity action to one collection.
type CollectionReducer struct {
	creator *collection.Creator
}

// NewCollectionReducer returns a reducer using creator for metadata lookup.
func NewCollectionReducer(creator *collection.Creator) *CollectionReducer {
	return &CollectionReducer{creator: creator}
}

// Reduce returns the collection after a. Unknown ops return c unchanged.
// Error actions only clear Loading.
func (r *CollectionReducer) Reduce(c *collection.Collection, a ir.EntityAction) (*collection.Collection, error) {
	if a.Payload.Skip {
		return c, nil
	}
	if a.IsError() {
		return c.SetLoading(false), nil
	}

	ad := r.creator.Adapter(a.EntityName())
	p := a.Payload
	op := p.Op

	switch op {
	case ir.OpCancelPersist, ir.OpCanceledPersist:
		return c.SetLoading(false), nil

	case ir.OpQueryAll, ir.OpQueryLoad, ir.OpQueryMany, ir.OpQueryByKey:
		return c.SetLoading(true), nil

	case ir.OpQueryAllSuccess, ir.OpQueryManySuccess, ir.OpQueryByKeySuccess:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		next, err := ad.MergeQueryResults(c, recs, p.MergeStrategy)
		if err != nil {
			return c, err
		}
		if op == ir.OpQueryAllSuccess {
			next = next.SetLoaded(true)
		}
		return next.SetLoading(false), nil

	case ir.OpQueryLoadSuccess:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		next, err := ad.AddAll(c, recs)
		if err != nil {
			return c, err
		}
		return next.SetLoaded(true).SetLoading(false), nil

	case ir.OpSaveAddOne, ir.OpSaveAddMany,
		ir.OpSaveDeleteOne, ir.OpSaveDeleteMany,
		ir.OpSaveUpdateOne, ir.OpSaveUpdateMany,
		ir.OpSaveUpsertOne, ir.OpSaveUpsertMany:
		next := c.SetLoading(true)
		if !p.IsOptimistic {
			return next, nil
		}
		return r.applyOptimistic(ad, next, p)

	case ir.OpSaveAddOneSuccess, ir.OpSaveAddManySuccess,
		ir.OpSaveUpsertOneSuccess, ir.OpSaveUpsertManySuccess:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		next, err := ad.MergeSaveResults(c, recs, p.MergeStrategy)
		if err != nil {
			return c, err
		}
		return next.SetLoading(false), nil

	case ir.OpSaveDeleteOneSuccess, ir.OpSaveDeleteManySuccess:
		ids, err := ad.ParseKeys(p.Data)
		if err != nil {
			return c, err
		}
		return ad.MergeSaveDeletes(c, ids, p.MergeStrategy).SetLoading(false), nil

	case ir.OpSaveUpdateOneSuccess, ir.OpSaveUpdateManySuccess:
		ups, err := collection.ParseUpdates(p.Data)
		if err != nil {
			return c, err
		}
		next, err := ad.MergeSaveUpdates(c, ups, p.MergeStrategy)
		if err != nil {
			return c, err
		}
		return next.SetLoading(false), nil
	}

	return r.reduceCacheOp(ad, c, p)
}

// applyOptimistic applies a save request to the cache before the server
// confirms it, tracking the original values.
func (r *CollectionReducer) applyOptimistic(ad collection.Adapter, c *collection.Collection, p ir.EntityActionPayload) (*collection.Collection, error) {
	switch ir.BaseOp(p.Op) {
	case ir.OpSaveAddOne, ir.OpSaveAddMany:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		tracked, err := ad.TrackAddMany(c, recs, p.MergeStrategy)
		if err != nil {
			return c, err
		}
		return ad.AddMany(tracked, recs)

	case ir.OpSaveDeleteOne, ir.OpSaveDeleteMany:
		ids, err := ad.ParseKeys(p.Data)
		if err != nil {
			return c, err
		}
		return ad.RemoveMany(ad.TrackDeleteMany(c, ids, p.MergeStrategy), ids), nil

	case ir.OpSaveUpdateOne, ir.OpSaveUpdateMany:
		ups, err := collection.ParseUpdates(p.Data)
		if err != nil {
			return c, err
		}
		return ad.UpdateMany(ad.TrackUpdateMany(c, ups, p.MergeStrategy), ups)

	case ir.OpSaveUpsertOne, ir.OpSaveUpsertMany:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		tracked, err := ad.TrackUpsertMany(c, recs, p.MergeStrategy)
		if err != nil {
			return c, err
		}
		return ad.UpsertMany(tracked, recs)
	}
	return c, nil
}

// reduceCacheOp applies ops that change the collection directly.
func (r *CollectionReducer) reduceCacheOp(ad collection.Adapter, c *collection.Collection, p ir.EntityActionPayload) (*collection.Collection, error) {
	switch p.Op {
	case ir.OpAddAll, ir.OpAddMany, ir.OpAddOne, ir.OpUpsertMany, ir.OpUpsertOne:
		recs, err := collection.ParseRecords(p.Data)
		if err != nil {
			return c, err
		}
		switch p.Op {
		case ir.OpAddAll:
			return ad.AddAll(c, recs)
		case ir.OpUpsertMany, ir.OpUpsertOne:
			return ad.UpsertMany(c, recs)
		}
		return ad.AddMany(c, recs)

	case ir.OpUpdateMany, ir.OpUpdateOne:
		ups, err := collection.ParseUpdates(p.Data)
		if err != nil {
			return c, err
		}
		return ad.UpdateMany(c, ups)

	case ir.OpRemoveAll:
		return ad.RemoveAll(c), nil

	case ir.OpCommitAll:
		return ad.CommitAll(c), nil

	case ir.OpUndoAll:
		return ad.UndoAll(c), nil

	case ir.OpRemoveMany, ir.OpRemoveOne,
		ir.OpCommitMany, ir.OpCommitOne,
		ir.OpUndoMany, ir.OpUndoOne:
		ids, err := ad.ParseKeys(p.Data)
		if err != nil {
			return c, err
		}
		switch p.Op {
		case ir.OpCommitMany, ir.OpCommitOne:
			return ad.CommitMany(c, ids), nil
		case ir.OpUndoMany, ir.OpUndoOne:
			return ad.UndoMany(c, ids), nil
		}
		return ad.RemoveMany(c, ids), nil

	case ir.OpSetChangeState:
		cs, err := collection.ParseChangeState(p.Data)
		if err != nil {
			return c, err
		}
		return c.SetChangeState(cs), nil

	case ir.OpSetCollection:
		return setCollection(ad, c, p.Data)

	case ir.OpSetFilter:
		s, ok := p.Data.(ir.String)
		if !ok {
			return c, fmt.Errorf("filter must be a string, got %T", p.Data)
		}
		return c.SetFilter(string(s)), nil

	case ir.OpSetLoaded:
		b, err := flag(p.Data)
		if err != nil {
			return c, err
		}
		return c.SetLoaded(b), nil

	case ir.OpSetLoading:
		b, err := flag(p.Data)
		if err != nil {
			return c, err
		}
		return c.SetLoading(b), nil
	}
	return c, nil
}

// setCollection replaces the collection. Data is either a record array or
// {"entities": [...], "filter": "", "loaded": bool, "loading": bool,
// "change_state": {...}}; absent fields reset to their empty value.
func setCollection(ad collection.Adapter, c *collection.Collection, v ir.Value) (*collection.Collection, error) {
	obj, isObj := v.(ir.Object)
	if !isObj {
		recs, err := collection.ParseRecords(v)
		if err != nil {
			return c, err
		}
		return ad.FromRecords(c.EntityName, recs)
	}

	recs, err := collection.ParseRecords(obj["entities"])
	if err != nil {
		return c, fmt.Errorf("entities: %w", err)
	}
	next, err := ad.FromRecords(c.EntityName, recs)
	if err != nil {
		return c, err
	}
	if f, ok := obj["filter"].(ir.String); ok {
		next = next.SetFilter(string(f))
	}
	if b, ok := obj["loaded"].(ir.Bool); ok {
		next = next.SetLoaded(bool(b))
	}
	if b, ok := obj["loading"].(ir.Bool); ok {
		next = next.SetLoading(bool(b))
	}
	cs, err := collection.ParseChangeState(obj["change_state"])
	if err != nil {
		return c, err
	}
	if len(cs) > 0 {
		next = next.SetChangeState(cs)
	}
	return next, nil
}
