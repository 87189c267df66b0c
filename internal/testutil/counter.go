// Package testutil provides deterministic correlation-id generators for
// tests and scenario runs.
package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/entcache/internal/ir"
)

// CountingGenerator numbers correlation ids: "prefix-1", "prefix-2", ...
//
// Unlike ir.SequenceGenerator it never runs out, and it can be reset so the
// same scenario run twice produces identical ids.
//
// Thread-safety: All methods are safe for concurrent use.
type CountingGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

var _ ir.CorrelationIDGenerator = (*CountingGenerator)(nil)

// NewCountingGenerator creates a generator. An empty prefix means "corr".
func NewCountingGenerator(prefix string) *CountingGenerator {
	if prefix == "" {
		prefix = "corr"
	}
	return &CountingGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *CountingGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Count returns how many ids were generated since creation or Reset.
func (g *CountingGenerator) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts numbering. The next id is "prefix-1".
func (g *CountingGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
