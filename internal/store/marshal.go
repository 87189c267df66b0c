package store

import (
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

// marshalRecord converts a record to canonical JSON TEXT and its digest.
func marshalRecord(rec ir.Object) (data string, digest string, err error) {
	b, err := ir.MarshalCanonical(rec)
	if err != nil {
		return "", "", fmt.Errorf("marshal record: %w", err)
	}
	digest, err = ir.RecordDigest(rec)
	if err != nil {
		return "", "", fmt.Errorf("marshal record: %w", err)
	}
	return string(b), digest, nil
}

// unmarshalRecord parses canonical JSON TEXT to a record.
// Uses ir.ParseJSON so large integers keep full int64 precision.
func unmarshalRecord(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	rec, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal record: expected object, got %T", v)
	}
	return rec, nil
}

// marshalAction converts an action to its kind and canonical JSON TEXT.
func marshalAction(a ir.Action) (kind string, payload string, err error) {
	enc, err := ir.EncodeAction(a)
	if err != nil {
		return "", "", fmt.Errorf("marshal action: %w", err)
	}
	b, err := ir.MarshalCanonical(enc)
	if err != nil {
		return "", "", fmt.Errorf("marshal action %s: %w", a.Type(), err)
	}
	return string(enc["kind"].(ir.String)), string(b), nil
}

// unmarshalAction parses a logged payload back to an action.
func unmarshalAction(payload string) (ir.Action, error) {
	v, err := ir.ParseJSON([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal action: expected object, got %T", v)
	}
	a, err := ir.DecodeAction(obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	return a, nil
}
