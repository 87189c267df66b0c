package engine

import (
	"context"

	"github.com/roach88/entcache/internal/ir"
)

// runActionSource stands in for an upstream action stream: it feeds src to
// the store's effects without reducing or publishing the source actions,
// then dispatches whatever the effects emit.
func runActionSource(ctx context.Context, s *Store, src ...ir.Action) error {
	for _, a := range src {
		for _, eff := range s.effects {
			out, ok := s.project(ctx, eff, a)
			if !ok || out == nil {
				continue
			}
			if err := s.Dispatch(ctx, out); err != nil {
				return err
			}
		}
	}
	return nil
}
