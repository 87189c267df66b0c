package collection

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/roach88/entcache/internal/ir"
)

// sorted orders next.IDs by the metadata's SortField, ties broken by id.
// next.IDs must not be shared with another collection.
func (a Adapter) sorted(next *Collection) *Collection {
	field := a.md.SortField
	if field == "" {
		return next
	}
	slices.SortStableFunc(next.IDs, func(x, y ir.EntityID) int {
		if c := compareValues(next.Entities[x][field], next.Entities[y][field]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	return next
}

// compareValues orders missing < ints < strings < bools < everything else.
// Values of the same scalar kind compare naturally; composite values
// compare by canonical encoding.
func compareValues(x, y ir.Value) int {
	if c := cmp.Compare(kindRank(x), kindRank(y)); c != 0 {
		return c
	}
	switch xv := x.(type) {
	case ir.Int:
		return cmp.Compare(xv, y.(ir.Int))
	case ir.String:
		return cmp.Compare(xv, y.(ir.String))
	case ir.Bool:
		return cmp.Compare(boolRank(bool(xv)), boolRank(bool(y.(ir.Bool))))
	case nil, ir.Null:
		return 0
	}
	xb, _ := ir.MarshalCanonical(x)
	yb, _ := ir.MarshalCanonical(y)
	return bytes.Compare(xb, yb)
}

func kindRank(v ir.Value) int {
	switch v.(type) {
	case nil, ir.Null:
		return 0
	case ir.Int:
		return 1
	case ir.String:
		return 2
	case ir.Bool:
		return 3
	}
	return 4
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
