package engine

import (
	"context"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/ir"
)

// DefaultMaxSteps is the default maximum number of actions one drain may
// process.
const DefaultMaxSteps = 1000

// ActionLog records every processed action. Implemented by store.Store.
type ActionLog interface {
	AppendAction(ctx context.Context, seq int64, a ir.Action) error
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSteps sets the per-dispatch step quota. Use a small value to test
// quota enforcement; n <= 0 disables it.
func WithMaxSteps(n int) Option {
	return func(s *Store) {
		s.maxSteps = n
	}
}

// WithActionLog appends every processed action to log.
func WithActionLog(log ActionLog) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithFailureHandler receives every runtime failure in addition to the
// Errors stream.
func WithFailureHandler(fn func(error)) Option {
	return func(s *Store) {
		s.onFailure = fn
	}
}

// WithClock sets the logical clock. Use NewClockAt to continue numbering an
// existing action log.
func WithClock(c *Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithInitialState sets the first cache version.
func WithInitialState(c *cache.Cache) Option {
	return func(s *Store) {
		s.state = c
	}
}
