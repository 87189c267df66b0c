package engine

import (
	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/stream"
)

// Select projects every cache version and emits only distinct results.
// The current projection is delivered on subscribe.
//
//	heroes := engine.Select(st, func(c *cache.Cache) *collection.Collection {
//		return c.Get("Hero")
//	})
func Select[T comparable](s *Store, project func(*cache.Cache) T) stream.Observable[T] {
	return stream.DistinctUntilChanged(stream.Map(s.States(), project))
}

// SelectFunc is Select with a custom equality.
func SelectFunc[T any](s *Store, project func(*cache.Cache) T, eq func(a, b T) bool) stream.Observable[T] {
	return stream.DistinctUntilChangedFunc(stream.Map(s.States(), project), eq)
}
