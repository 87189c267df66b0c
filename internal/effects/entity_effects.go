package effects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/entcache/internal/collection"
	"github.com/roach88/entcache/internal/ir"
)

// EntityEffects is the default Source. It answers every persistence op by
// calling a DataService and emitting <op>/success with the service result
// or <op>/error with the failure.
type EntityEffects struct {
	ds      DataService
	factory *ir.EntityActionFactory
	creator *collection.Creator
}

// NewEntityEffects returns the default effects over ds. A nil creator uses
// default metadata for every entity type.
func NewEntityEffects(ds DataService, factory *ir.EntityActionFactory, creator *collection.Creator) *EntityEffects {
	if factory == nil {
		factory = ir.NewEntityActionFactory(nil)
	}
	return &EntityEffects{ds: ds, factory: factory, creator: creator}
}

// Effects implements Source.
func (e *EntityEffects) Effects() []Effect {
	return []Effect{
		{Name: "persist", Match: OfOp(PersistOps...), Project: e.persist},
		{Name: "cancel-persist", Match: OfOp(ir.OpCancelPersist), Project: e.cancel},
	}
}

func (e *EntityEffects) cancel(_ context.Context, a ir.Action) (ir.Action, bool) {
	ea, _ := ir.AsEntityAction(a)
	return e.factory.CreateFromAction(ea, ir.OpCanceledPersist), true
}

func (e *EntityEffects) persist(ctx context.Context, a ir.Action) (ir.Action, bool) {
	ea, ok := ir.AsEntityAction(a)
	if !ok {
		return nil, false
	}
	// A skipped request succeeds without touching the data service.
	if ea.Payload.Skip {
		return e.factory.CreateFromAction(ea, ir.SuccessOf(ea.Op())), true
	}

	data, err := e.call(ctx, ea)
	if err != nil {
		slog.Debug("persist failed",
			"entity", ea.EntityName(),
			"op", ea.Op(),
			"correlation_id", ea.Payload.CorrelationID,
			"error", err,
		)
		orig := ea
		return e.factory.CreateFromAction(ea, ir.ErrorOf(ea.Op()),
			ir.WithError(&ir.EntityActionError{Message: err.Error(), Original: &orig}),
		), true
	}
	return e.factory.CreateFromAction(ea, ir.SuccessOf(ea.Op()), ir.WithData(data)), true
}

// call runs the data service request for ea and returns the success data.
func (e *EntityEffects) call(ctx context.Context, ea ir.EntityAction) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.ds == nil {
		return nil, errors.New("no data service")
	}
	name := ea.EntityName()
	ad := e.creator.Adapter(name)
	data := ea.Payload.Data

	switch ea.Op() {
	case ir.OpQueryAll, ir.OpQueryLoad:
		recs, err := e.ds.GetAll(ctx, name)
		return toArray(recs), err

	case ir.OpQueryMany:
		query, _ := data.(ir.Object)
		recs, err := e.ds.GetWithQuery(ctx, name, query)
		return toArray(recs), err

	case ir.OpQueryByKey:
		ids, err := ad.ParseKeys(data)
		if err != nil {
			return nil, err
		}
		if len(ids) != 1 {
			return nil, fmt.Errorf("query-by-key needs exactly one key, got %d", len(ids))
		}
		rec, err := e.ds.GetByKey(ctx, name, ids[0])
		if errors.Is(err, ErrNotFound) {
			return ir.Null{}, nil
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	var out ir.Value
	err := e.batch(ctx, func(ds DataService) error {
		var err error
		out, err = save(ctx, ds, ad, ea)
		return err
	})
	return out, err
}

func (e *EntityEffects) batch(ctx context.Context, fn func(DataService) error) error {
	if tx, ok := e.ds.(TxRunner); ok {
		return tx.InTx(ctx, fn)
	}
	return fn(e.ds)
}

// save performs a save op. One-record ops return one value, many-record ops
// an array.
func save(ctx context.Context, ds DataService, ad collection.Adapter, ea ir.EntityAction) (ir.Value, error) {
	name := ea.EntityName()
	data := ea.Payload.Data
	many := ea.Op() == ir.OpSaveAddMany || ea.Op() == ir.OpSaveUpsertMany ||
		ea.Op() == ir.OpSaveDeleteMany || ea.Op() == ir.OpSaveUpdateMany

	switch ea.Op() {
	case ir.OpSaveAddOne, ir.OpSaveAddMany, ir.OpSaveUpsertOne, ir.OpSaveUpsertMany:
		recs, err := collection.ParseRecords(data)
		if err != nil {
			return nil, err
		}
		out := make([]ir.Object, 0, len(recs))
		for _, rec := range recs {
			var saved ir.Object
			if ea.Op() == ir.OpSaveAddOne || ea.Op() == ir.OpSaveAddMany {
				saved, err = ds.Add(ctx, name, rec)
			} else {
				saved, err = ds.Upsert(ctx, name, rec)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, saved)
		}
		return shape(many, toArray(out)), nil

	case ir.OpSaveDeleteOne, ir.OpSaveDeleteMany:
		ids, err := ad.ParseKeys(data)
		if err != nil {
			return nil, err
		}
		out := make(ir.Array, 0, len(ids))
		for _, id := range ids {
			if err := ds.Delete(ctx, name, id); err != nil {
				return nil, err
			}
			out = append(out, ir.String(id))
		}
		return shape(many, out), nil

	case ir.OpSaveUpdateOne, ir.OpSaveUpdateMany:
		ups, err := collection.ParseUpdates(data)
		if err != nil {
			return nil, err
		}
		out := make(ir.Array, 0, len(ups))
		for _, u := range ups {
			saved, err := ds.Update(ctx, name, u)
			if err != nil {
				return nil, err
			}
			out = append(out, ir.Obj(ir.O("id", ir.String(u.ID)), ir.O("changes", saved)))
		}
		return shape(many, out), nil
	}
	return nil, fmt.Errorf("unsupported op %s", ea.Op())
}

func toArray(recs []ir.Object) ir.Array {
	out := make(ir.Array, len(recs))
	for i, rec := range recs {
		out[i] = rec
	}
	return out
}

// shape unwraps single results of one-record ops.
func shape(many bool, arr ir.Array) ir.Value {
	if many || len(arr) != 1 {
		return arr
	}
	return arr[0]
}
