package ir

import (
	"fmt"
	"strings"
)

// Action is anything that can be dispatched. Only EntityAction and
// CacheAction take part in entity reduction; every other action passes
// through the base reducer unchanged.
type Action interface {
	Type() string
}

// PlainAction is a generic action with an arbitrary payload.
type PlainAction struct {
	Kind    string `json:"type"`
	Payload Value  `json:"payload,omitempty"`
}

// Type implements Action.
func (a PlainAction) Type() string {
	return a.Kind
}

// NewAction builds a PlainAction.
func NewAction(kind string, payload Value) PlainAction {
	return PlainAction{Kind: kind, Payload: payload}
}

// EntityAction is an action that targets one entity collection.
//
// Identity is structural (see Key), never a unique id: two actions with the
// same type, entity name and op are the same kind of action. EntityAction
// is a value; Data is shared, never modified.
type EntityAction struct {
	ActionType string              `json:"type"`
	Payload    EntityActionPayload `json:"payload"`
}

// EntityActionPayload carries the entity name, op and data of an action.
type EntityActionPayload struct {
	EntityName    string             `json:"entity_name"`
	Op            EntityOp           `json:"entity_op"`
	Data          Value              `json:"data,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
	IsOptimistic  bool               `json:"is_optimistic,omitempty"`
	MergeStrategy MergeStrategy      `json:"merge_strategy,omitempty"`
	Tag           string             `json:"tag,omitempty"`
	Error         *EntityActionError `json:"error,omitempty"`
	// Skip asks reducers and effects to ignore the action.
	Skip bool `json:"skip,omitempty"`
}

// EntityActionError describes a failed persistence op.
type EntityActionError struct {
	Message string `json:"message"`
	// Original is the action whose persistence failed, when known.
	Original *EntityAction `json:"original,omitempty"`
}

func (e *EntityActionError) Error() string {
	return e.Message
}

// Type implements Action.
func (a EntityAction) Type() string {
	return a.ActionType
}

// EntityName is shorthand for a.Payload.EntityName.
func (a EntityAction) EntityName() string {
	return a.Payload.EntityName
}

// Op is shorthand for a.Payload.Op.
func (a EntityAction) Op() EntityOp {
	return a.Payload.Op
}

// IsError reports whether the action represents a failure: either an
// attached error or an op with the OpError suffix.
func (a EntityAction) IsError() bool {
	return a.Payload.Error != nil || IsErrorOp(a.Payload.Op)
}

// Key returns the structural identity of the action.
func (a EntityAction) Key() string {
	return a.ActionType + "|" + a.Payload.EntityName + "|" + string(a.Payload.Op)
}

// FormatActionType builds the action type string "[label] op".
// The label is the tag when present, otherwise the entity name.
func FormatActionType(entityName string, op EntityOp, tag string) string {
	label := tag
	if label == "" {
		label = entityName
	}
	return fmt.Sprintf("[%s] %s", label, op)
}

// AsEntityAction returns the action as an EntityAction when it has the
// entity-action shape: a non-empty entity name and op.
func AsEntityAction(a Action) (EntityAction, bool) {
	var ea EntityAction
	switch v := a.(type) {
	case EntityAction:
		ea = v
	case *EntityAction:
		if v == nil {
			return EntityAction{}, false
		}
		ea = *v
	default:
		return EntityAction{}, false
	}
	if ea.Payload.EntityName == "" || ea.Payload.Op == "" {
		return EntityAction{}, false
	}
	return ea, true
}

// CacheOp names a cache-wide action.
type CacheOp string

// Cache-wide action types.
const (
	CacheClearCollections CacheOp = "entity-cache/clear-collections"
	CacheLoadCollections  CacheOp = "entity-cache/load-collections"
	CacheMergeQuerySet    CacheOp = "entity-cache/merge-query-set"
	CacheSetEntityCache   CacheOp = "entity-cache/set-entity-cache"
)

// CacheAction acts on several collections at once.
//
//   - clear-collections empties Names (all collections when Names is empty)
//   - load-collections replaces each collection in Collections
//   - merge-query-set merges Collections using MergeStrategy
//   - set-entity-cache replaces the whole cache with Collections
type CacheAction struct {
	Op            CacheOp             `json:"op"`
	Names         []string            `json:"names,omitempty"`
	Collections   map[string][]Object `json:"collections,omitempty"`
	MergeStrategy MergeStrategy       `json:"merge_strategy,omitempty"`
	Tag           string              `json:"tag,omitempty"`
}

// Type implements Action.
func (a CacheAction) Type() string {
	if a.Tag != "" {
		return fmt.Sprintf("[%s] %s", a.Tag, a.Op)
	}
	return string(a.Op)
}

// AsCacheAction returns the action as a CacheAction.
func AsCacheAction(a Action) (CacheAction, bool) {
	switch v := a.(type) {
	case CacheAction:
		return v, true
	case *CacheAction:
		if v != nil {
			return *v, true
		}
	}
	return CacheAction{}, false
}

// Describe returns a short log-friendly description of any action.
func Describe(a Action) string {
	if ea, ok := AsEntityAction(a); ok {
		return fmt.Sprintf("%s (entity=%s op=%s)", ea.Type(), ea.EntityName(), ea.Op())
	}
	return strings.TrimSpace(a.Type())
}
