package ir

import (
	"fmt"
)

// Action kinds recorded in an encoded action.
const (
	KindEntity = "entity"
	KindCache  = "cache"
	KindPlain  = "plain"
)

// EncodeAction converts an action to its logged form, an Object with a
// "kind" and "type" plus the fields of that kind. Zero fields are omitted.
// Only EntityAction, CacheAction and PlainAction can be encoded.
func EncodeAction(a Action) (Object, error) {
	if ea, ok := AsEntityAction(a); ok {
		return encodeEntityAction(ea), nil
	}
	if ca, ok := AsCacheAction(a); ok {
		return encodeCacheAction(ca), nil
	}
	switch v := a.(type) {
	case PlainAction:
		return encodePlainAction(v), nil
	case *PlainAction:
		if v != nil {
			return encodePlainAction(*v), nil
		}
	}
	return nil, fmt.Errorf("encode action: unsupported action %T", a)
}

func encodePlainAction(a PlainAction) Object {
	obj := Object{"kind": String(KindPlain), "type": String(a.Kind)}
	if a.Payload != nil {
		obj["payload"] = a.Payload
	}
	return obj
}

func encodeEntityAction(a EntityAction) Object {
	p := a.Payload
	obj := Object{
		"kind":        String(KindEntity),
		"type":        String(a.ActionType),
		"entity_name": String(p.EntityName),
		"entity_op":   String(p.Op),
	}
	if p.Data != nil {
		obj["data"] = p.Data
	}
	if p.CorrelationID != "" {
		obj["correlation_id"] = String(p.CorrelationID)
	}
	if p.IsOptimistic {
		obj["is_optimistic"] = Bool(true)
	}
	if p.MergeStrategy != "" {
		obj["merge_strategy"] = String(p.MergeStrategy)
	}
	if p.Tag != "" {
		obj["tag"] = String(p.Tag)
	}
	if p.Skip {
		obj["skip"] = Bool(true)
	}
	if p.Error != nil {
		errObj := Object{"message": String(p.Error.Message)}
		if p.Error.Original != nil {
			errObj["original"] = encodeEntityAction(*p.Error.Original)
		}
		obj["error"] = errObj
	}
	return obj
}

func encodeCacheAction(a CacheAction) Object {
	obj := Object{
		"kind": String(KindCache),
		"type": String(a.Type()),
		"op":   String(a.Op),
	}
	if len(a.Names) > 0 {
		names := make(Array, len(a.Names))
		for i, n := range a.Names {
			names[i] = String(n)
		}
		obj["names"] = names
	}
	if len(a.Collections) > 0 {
		colls := make(Object, len(a.Collections))
		for name, recs := range a.Collections {
			arr := make(Array, len(recs))
			for i, rec := range recs {
				arr[i] = rec
			}
			colls[name] = arr
		}
		obj["collections"] = colls
	}
	if a.MergeStrategy != "" {
		obj["merge_strategy"] = String(a.MergeStrategy)
	}
	if a.Tag != "" {
		obj["tag"] = String(a.Tag)
	}
	return obj
}

// DecodeAction is the inverse of EncodeAction.
func DecodeAction(obj Object) (Action, error) {
	kind, err := stringField(obj, "kind", true)
	if err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	switch kind {
	case KindEntity:
		ea, err := decodeEntityAction(obj)
		if err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		return ea, nil
	case KindCache:
		ca, err := decodeCacheAction(obj)
		if err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		return ca, nil
	case KindPlain:
		typ, err := stringField(obj, "type", true)
		if err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		return PlainAction{Kind: typ, Payload: obj["payload"]}, nil
	}
	return nil, fmt.Errorf("decode action: unknown kind %q", kind)
}

func decodeEntityAction(obj Object) (EntityAction, error) {
	var a EntityAction
	var err error
	if a.ActionType, err = stringField(obj, "type", true); err != nil {
		return a, err
	}
	p := &a.Payload
	if p.EntityName, err = stringField(obj, "entity_name", true); err != nil {
		return a, err
	}
	op, err := stringField(obj, "entity_op", true)
	if err != nil {
		return a, err
	}
	p.Op = EntityOp(op)
	p.Data = obj["data"]
	if p.CorrelationID, err = stringField(obj, "correlation_id", false); err != nil {
		return a, err
	}
	strategy, err := stringField(obj, "merge_strategy", false)
	if err != nil {
		return a, err
	}
	p.MergeStrategy = MergeStrategy(strategy)
	if p.Tag, err = stringField(obj, "tag", false); err != nil {
		return a, err
	}
	if p.IsOptimistic, err = boolField(obj, "is_optimistic"); err != nil {
		return a, err
	}
	if p.Skip, err = boolField(obj, "skip"); err != nil {
		return a, err
	}
	if raw, ok := obj["error"]; ok {
		errObj, ok := raw.(Object)
		if !ok {
			return a, fmt.Errorf("field \"error\": expected object, got %T", raw)
		}
		msg, err := stringField(errObj, "message", false)
		if err != nil {
			return a, err
		}
		p.Error = &EntityActionError{Message: msg}
		if rawOrig, ok := errObj["original"]; ok {
			origObj, ok := rawOrig.(Object)
			if !ok {
				return a, fmt.Errorf("field \"error.original\": expected object, got %T", rawOrig)
			}
			orig, err := decodeEntityAction(origObj)
			if err != nil {
				return a, fmt.Errorf("error.original: %w", err)
			}
			p.Error.Original = &orig
		}
	}
	return a, nil
}

func decodeCacheAction(obj Object) (CacheAction, error) {
	var a CacheAction
	op, err := stringField(obj, "op", true)
	if err != nil {
		return a, err
	}
	a.Op = CacheOp(op)
	if raw, ok := obj["names"]; ok {
		arr, ok := raw.(Array)
		if !ok {
			return a, fmt.Errorf("field \"names\": expected array, got %T", raw)
		}
		for i, elem := range arr {
			s, ok := elem.(String)
			if !ok {
				return a, fmt.Errorf("names[%d]: expected string, got %T", i, elem)
			}
			a.Names = append(a.Names, string(s))
		}
	}
	if raw, ok := obj["collections"]; ok {
		colls, ok := raw.(Object)
		if !ok {
			return a, fmt.Errorf("field \"collections\": expected object, got %T", raw)
		}
		a.Collections = make(map[string][]Object, len(colls))
		for name, v := range colls {
			arr, ok := v.(Array)
			if !ok {
				return a, fmt.Errorf("collections[%q]: expected array, got %T", name, v)
			}
			recs := make([]Object, len(arr))
			for i, elem := range arr {
				rec, ok := elem.(Object)
				if !ok {
					return a, fmt.Errorf("collections[%q][%d]: expected object, got %T", name, i, elem)
				}
				recs[i] = rec
			}
			a.Collections[name] = recs
		}
	}
	strategy, err := stringField(obj, "merge_strategy", false)
	if err != nil {
		return a, err
	}
	a.MergeStrategy = MergeStrategy(strategy)
	if a.Tag, err = stringField(obj, "tag", false); err != nil {
		return a, err
	}
	return a, nil
}

func stringField(obj Object, key string, required bool) (string, error) {
	raw, ok := obj[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing field %q", key)
		}
		return "", nil
	}
	s, ok := raw.(String)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, raw)
	}
	return string(s), nil
}

func boolField(obj Object, key string) (bool, error) {
	raw, ok := obj[key]
	if !ok {
		return false, nil
	}
	b, ok := raw.(Bool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", key, raw)
	}
	return bool(b), nil
}
