package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entcache/internal/ir"
)

func TestCountingGenerator_StartsAtOne(t *testing.T) {
	gen := NewCountingGenerator("hero")
	assert.Equal(t, int64(0), gen.Count())

	assert.Equal(t, "hero-1", gen.Generate())
	assert.Equal(t, "hero-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Count())
}

func TestCountingGenerator_DefaultPrefix(t *testing.T) {
	gen := NewCountingGenerator("")
	assert.Equal(t, "corr-1", gen.Generate())
}

func TestCountingGenerator_Reset(t *testing.T) {
	gen := NewCountingGenerator("x")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, int64(0), gen.Count())
	assert.Equal(t, "x-1", gen.Generate())
}

func TestCountingGenerator_ThreadSafe(t *testing.T) {
	gen := NewCountingGenerator("c")
	const goroutines = 10
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*perGoroutine, "ids must be unique")
	assert.Equal(t, int64(goroutines*perGoroutine), gen.Count())
}

func TestCountingGenerator_WithFactory(t *testing.T) {
	factory := ir.NewEntityActionFactory(NewCountingGenerator("q"))

	first := factory.Create("Hero", ir.OpQueryAll)
	second := factory.Create("Hero", ir.OpQueryAll)

	assert.Equal(t, "q-1", first.Payload.CorrelationID)
	assert.Equal(t, "q-2", second.Payload.CorrelationID)
}
