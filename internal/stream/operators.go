package stream

import (
	"sync"
	"sync/atomic"
)

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc[T any] func(Observer[T]) *Subscription

// Subscribe implements Observable.
func (f ObservableFunc[T]) Subscribe(o Observer[T]) *Subscription {
	return f(o)
}

// pipe subscribes to src with next in place of o.Next, forwarding Error and
// Complete unchanged.
func pipe[T, U any](src Observable[T], o Observer[U], next func(T)) *Subscription {
	return src.Subscribe(Observer[T]{
		Next:     next,
		Error:    o.Error,
		Complete: o.Complete,
	})
}

// Filter passes values for which pred returns true.
func Filter[T any](src Observable[T], pred func(T) bool) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		return pipe(src, o, func(v T) {
			if pred(v) && o.Next != nil {
				o.Next(v)
			}
		})
	})
}

// Map transforms each value.
func Map[T, U any](src Observable[T], fn func(T) U) Observable[U] {
	return ObservableFunc[U](func(o Observer[U]) *Subscription {
		return pipe(src, o, func(v T) {
			out := fn(v)
			if o.Next != nil {
				o.Next(out)
			}
		})
	})
}

// Skip drops the first n values seen by each subscription.
func Skip[T any](src Observable[T], n int) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		var seen atomic.Int64
		return pipe(src, o, func(v T) {
			if seen.Add(1) <= int64(n) {
				return
			}
			if o.Next != nil {
				o.Next(v)
			}
		})
	})
}

// DistinctUntilChanged drops values equal to the previous one.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return DistinctUntilChangedFunc(src, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops values that eq reports equal to the
// previous one.
func DistinctUntilChangedFunc[T any](src Observable[T], eq func(a, b T) bool) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		var (
			mu   sync.Mutex
			prev T
			has  bool
		)
		return pipe(src, o, func(v T) {
			mu.Lock()
			same := has && eq(prev, v)
			prev, has = v, true
			mu.Unlock()
			if !same && o.Next != nil {
				o.Next(v)
			}
		})
	})
}
