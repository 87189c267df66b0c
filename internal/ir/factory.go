package ir

import (
	"sync"

	"github.com/google/uuid"
)

// CorrelationIDGenerator produces correlation ids for entity actions.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type CorrelationIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 correlation ids.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined ids in order.
// Panics once exhausted so tests fail fast on unexpected actions.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceGenerator creates a generator over ids.
func NewSequenceGenerator(ids ...string) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("SequenceGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// ActionOption customizes an entity action built by EntityActionFactory.
type ActionOption func(*EntityActionPayload)

// WithData sets the action data.
func WithData(v Value) ActionOption {
	return func(p *EntityActionPayload) { p.Data = v }
}

// WithCorrelationID sets an explicit correlation id.
func WithCorrelationID(id string) ActionOption {
	return func(p *EntityActionPayload) { p.CorrelationID = id }
}

// WithOptimistic marks a save as optimistic.
func WithOptimistic(optimistic bool) ActionOption {
	return func(p *EntityActionPayload) { p.IsOptimistic = optimistic }
}

// WithMergeStrategy sets the merge strategy.
func WithMergeStrategy(s MergeStrategy) ActionOption {
	return func(p *EntityActionPayload) { p.MergeStrategy = s }
}

// WithTag sets the tag used in the action type label.
func WithTag(tag string) ActionOption {
	return func(p *EntityActionPayload) { p.Tag = tag }
}

// WithError attaches an error.
func WithError(err *EntityActionError) ActionOption {
	return func(p *EntityActionPayload) { p.Error = err }
}

// WithSkip marks the action to be ignored by reducers and effects.
func WithSkip(skip bool) ActionOption {
	return func(p *EntityActionPayload) { p.Skip = skip }
}

// EntityActionFactory builds entity actions with consistent type strings
// and correlation ids. Safe for concurrent use when its generator is.
type EntityActionFactory struct {
	ids CorrelationIDGenerator
}

// NewEntityActionFactory creates a factory. A nil generator means actions
// carry no correlation id unless one is supplied.
func NewEntityActionFactory(ids CorrelationIDGenerator) *EntityActionFactory {
	return &EntityActionFactory{ids: ids}
}

// Create builds an entity action for entityName and op.
func (f *EntityActionFactory) Create(entityName string, op EntityOp, opts ...ActionOption) EntityAction {
	payload := EntityActionPayload{
		EntityName: entityName,
		Op:         op,
	}
	for _, opt := range opts {
		opt(&payload)
	}
	if payload.CorrelationID == "" && f != nil && f.ids != nil {
		payload.CorrelationID = f.ids.Generate()
	}
	return EntityAction{
		ActionType: FormatActionType(payload.EntityName, payload.Op, payload.Tag),
		Payload:    payload,
	}
}

// CreateFromAction derives a new action from src with a different op,
// keeping entity name, correlation id, tag, optimism and merge strategy.
// Options override the copied fields.
func (f *EntityActionFactory) CreateFromAction(src EntityAction, op EntityOp, opts ...ActionOption) EntityAction {
	payload := src.Payload
	payload.Op = op
	payload.Error = nil
	payload.Skip = false
	for _, opt := range opts {
		opt(&payload)
	}
	return EntityAction{
		ActionType: FormatActionType(payload.EntityName, payload.Op, payload.Tag),
		Payload:    payload,
	}
}
