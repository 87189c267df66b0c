package testutil

import "github.com/roach88/entcache/internal/ir"

// FixedGenerator returns the same correlation id every time.
//
// All actions of a run then share one id, which keeps golden traces stable
// when the number of generated ids is not part of what is being tested.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	id string
}

var _ ir.CorrelationIDGenerator = (*FixedGenerator)(nil)

// NewFixedGenerator creates a fixed generator.
//
// The id is typically set in the scenario YAML:
//
//	correlation_id: "corr-fixed"
//
// If id is empty, Generate returns "corr-default".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "corr-default"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedGenerator) Generate() string {
	return g.id
}
