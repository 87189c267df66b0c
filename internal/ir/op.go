package ir

import "strings"

// EntityOp names the operation an entity action performs.
//
// Persistence ops ask an effect to talk to a data service; the service
// answers with the same op plus OpSuccess or OpError. Cache ops change the
// collection directly and never reach a data service.
type EntityOp string

// Suffixes appended to a persistence op by the effect that completes it.
const (
	OpSuccess = "/success"
	OpError   = "/error"
)

// Persistence ops.
const (
	OpCancelPersist   EntityOp = "entity/cancel-persist"
	OpCanceledPersist EntityOp = "entity/canceled-persist"

	OpQueryAll        EntityOp = "entity/query-all"
	OpQueryAllSuccess EntityOp = OpQueryAll + OpSuccess
	OpQueryAllError   EntityOp = OpQueryAll + OpError

	OpQueryLoad        EntityOp = "entity/query-load"
	OpQueryLoadSuccess EntityOp = OpQueryLoad + OpSuccess
	OpQueryLoadError   EntityOp = OpQueryLoad + OpError

	OpQueryMany        EntityOp = "entity/query-many"
	OpQueryManySuccess EntityOp = OpQueryMany + OpSuccess
	OpQueryManyError   EntityOp = OpQueryMany + OpError

	OpQueryByKey        EntityOp = "entity/query-by-key"
	OpQueryByKeySuccess EntityOp = OpQueryByKey + OpSuccess
	OpQueryByKeyError   EntityOp = OpQueryByKey + OpError

	OpSaveAddOne        EntityOp = "entity/save-add-one"
	OpSaveAddOneSuccess EntityOp = OpSaveAddOne + OpSuccess
	OpSaveAddOneError   EntityOp = OpSaveAddOne + OpError

	OpSaveAddMany        EntityOp = "entity/save-add-many"
	OpSaveAddManySuccess EntityOp = OpSaveAddMany + OpSuccess
	OpSaveAddManyError   EntityOp = OpSaveAddMany + OpError

	OpSaveDeleteOne        EntityOp = "entity/save-delete-one"
	OpSaveDeleteOneSuccess EntityOp = OpSaveDeleteOne + OpSuccess
	OpSaveDeleteOneError   EntityOp = OpSaveDeleteOne + OpError

	OpSaveDeleteMany        EntityOp = "entity/save-delete-many"
	OpSaveDeleteManySuccess EntityOp = OpSaveDeleteMany + OpSuccess
	OpSaveDeleteManyError   EntityOp = OpSaveDeleteMany + OpError

	OpSaveUpdateOne        EntityOp = "entity/save-update-one"
	OpSaveUpdateOneSuccess EntityOp = OpSaveUpdateOne + OpSuccess
	OpSaveUpdateOneError   EntityOp = OpSaveUpdateOne + OpError

	OpSaveUpdateMany        EntityOp = "entity/save-update-many"
	OpSaveUpdateManySuccess EntityOp = OpSaveUpdateMany + OpSuccess
	OpSaveUpdateManyError   EntityOp = OpSaveUpdateMany + OpError

	OpSaveUpsertOne        EntityOp = "entity/save-upsert-one"
	OpSaveUpsertOneSuccess EntityOp = OpSaveUpsertOne + OpSuccess
	OpSaveUpsertOneError   EntityOp = OpSaveUpsertOne + OpError

	OpSaveUpsertMany        EntityOp = "entity/save-upsert-many"
	OpSaveUpsertManySuccess EntityOp = OpSaveUpsertMany + OpSuccess
	OpSaveUpsertManyError   EntityOp = OpSaveUpsertMany + OpError
)

// Cache ops.
const (
	OpAddAll     EntityOp = "entity/add-all"
	OpAddMany    EntityOp = "entity/add-many"
	OpAddOne     EntityOp = "entity/add-one"
	OpRemoveAll  EntityOp = "entity/remove-all"
	OpRemoveMany EntityOp = "entity/remove-many"
	OpRemoveOne  EntityOp = "entity/remove-one"
	OpUpdateMany EntityOp = "entity/update-many"
	OpUpdateOne  EntityOp = "entity/update-one"
	OpUpsertMany EntityOp = "entity/upsert-many"
	OpUpsertOne  EntityOp = "entity/upsert-one"

	OpCommitAll  EntityOp = "entity/commit-all"
	OpCommitMany EntityOp = "entity/commit-many"
	OpCommitOne  EntityOp = "entity/commit-one"
	OpUndoAll    EntityOp = "entity/undo-all"
	OpUndoMany   EntityOp = "entity/undo-many"
	OpUndoOne    EntityOp = "entity/undo-one"

	OpSetChangeState EntityOp = "entity/set-change-state"
	OpSetCollection  EntityOp = "entity/set-collection"
	OpSetFilter      EntityOp = "entity/set-filter"
	OpSetLoaded      EntityOp = "entity/set-loaded"
	OpSetLoading     EntityOp = "entity/set-loading"
)

// IsErrorOp reports whether op carries the OpError suffix.
func IsErrorOp(op EntityOp) bool {
	return strings.HasSuffix(string(op), OpError)
}

// IsSuccessOp reports whether op carries the OpSuccess suffix.
func IsSuccessOp(op EntityOp) bool {
	return strings.HasSuffix(string(op), OpSuccess)
}

// BaseOp strips a success or error suffix.
func BaseOp(op EntityOp) EntityOp {
	s := string(op)
	s = strings.TrimSuffix(s, OpSuccess)
	s = strings.TrimSuffix(s, OpError)
	return EntityOp(s)
}

// SuccessOf returns the success op for a persistence op.
func SuccessOf(op EntityOp) EntityOp {
	return BaseOp(op) + OpSuccess
}

// ErrorOf returns the error op for a persistence op.
func ErrorOf(op EntityOp) EntityOp {
	return BaseOp(op) + OpError
}

// OpSet is a set of ops used to filter actions.
type OpSet map[EntityOp]struct{}

// NewOpSet builds an OpSet.
func NewOpSet(ops ...EntityOp) OpSet {
	set := make(OpSet, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// Has reports whether op is in the set.
func (s OpSet) Has(op EntityOp) bool {
	_, ok := s[op]
	return ok
}

// MergeStrategy decides how server results and optimistic changes combine
// with entities that have unsaved changes.
type MergeStrategy string

const (
	// PreserveChanges keeps entities with pending changes untouched when a
	// query result arrives. It is the default for queries.
	PreserveChanges MergeStrategy = "preserve-changes"
	// OverwriteChanges replaces pending changes with the incoming value and
	// drops their tracking.
	OverwriteChanges MergeStrategy = "overwrite-changes"
	// IgnoreChanges applies the incoming value and leaves tracking as is.
	IgnoreChanges MergeStrategy = "ignore-changes"
)

// ValidMergeStrategies lists the recognized strategies.
var ValidMergeStrategies = map[MergeStrategy]bool{
	"":               true,
	PreserveChanges:  true,
	OverwriteChanges: true,
	IgnoreChanges:    true,
}
