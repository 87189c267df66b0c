package collection

import (
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

// ParseRecords reads one record or an array of records. Missing data is an
// empty list.
func ParseRecords(v ir.Value) ([]ir.Object, error) {
	switch data := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.Object:
		return []ir.Object{data}, nil
	case ir.Array:
		out := make([]ir.Object, 0, len(data))
		for i, elem := range data {
			rec, ok := elem.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("data[%d]: record must be an object, got %T", i, elem)
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("data must be a record or records, got %T", v)
	}
}

// ParseKeys reads one key or an array of keys. A record stands for its own
// key.
func (a Adapter) ParseKeys(v ir.Value) ([]ir.EntityID, error) {
	switch data := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.Array:
		out := make([]ir.EntityID, 0, len(data))
		for i, elem := range data {
			id, err := a.parseKey(elem)
			if err != nil {
				return nil, fmt.Errorf("data[%d]: %w", i, err)
			}
			out = append(out, id)
		}
		return out, nil
	default:
		id, err := a.parseKey(data)
		if err != nil {
			return nil, err
		}
		return []ir.EntityID{id}, nil
	}
}

func (a Adapter) parseKey(v ir.Value) (ir.EntityID, error) {
	if rec, ok := v.(ir.Object); ok {
		return a.IDOf(rec)
	}
	return ir.EntityIDOf(v)
}

// ParseUpdates reads one update or an array of updates.
func ParseUpdates(v ir.Value) ([]Update, error) {
	switch data := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.Array:
		out := make([]Update, 0, len(data))
		for i, elem := range data {
			u, err := ParseUpdate(elem)
			if err != nil {
				return nil, fmt.Errorf("data[%d]: %w", i, err)
			}
			out = append(out, u)
		}
		return out, nil
	default:
		u, err := ParseUpdate(data)
		if err != nil {
			return nil, err
		}
		return []Update{u}, nil
	}
}

// ParseChangeState reads {"<id>": {"type": "...", "original": {...}}}.
func ParseChangeState(v ir.Value) (map[ir.EntityID]ChangeState, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		if _, isNull := v.(ir.Null); v == nil || isNull {
			return nil, nil
		}
		return nil, fmt.Errorf("change state must be an object, got %T", v)
	}
	out := make(map[ir.EntityID]ChangeState, len(obj))
	for _, id := range obj.SortedKeys() {
		entry, ok := obj[id].(ir.Object)
		if !ok {
			return nil, fmt.Errorf("change state %s: must be an object", id)
		}
		typ, _ := entry["type"].(ir.String)
		st := ChangeState{Type: ChangeType(typ)}
		switch st.Type {
		case Added, Updated, Deleted:
		default:
			return nil, fmt.Errorf("change state %s: unknown type %q", id, typ)
		}
		if orig, ok := entry["original"].(ir.Object); ok {
			st.Original = orig
		}
		out[ir.EntityID(id)] = st
	}
	return out, nil
}
