package stream

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Observer receives values from an Observable. Any callback may be nil.
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// NextFunc is shorthand for an observer with only a Next callback.
func NextFunc[T any](fn func(T)) Observer[T] {
	return Observer[T]{Next: fn}
}

// Observable is a subscribable source of values.
type Observable[T any] interface {
	Subscribe(Observer[T]) *Subscription
}

// Subscription is a cancelable registration.
type Subscription struct {
	closed atomic.Bool
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery immediately. Safe to call more than once and
// from inside a callback.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.closed.Swap(true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Closed reports whether Unsubscribe was called or the source completed.
func (s *Subscription) Closed() bool {
	return s == nil || s.closed.Load()
}

// CallbackError wraps a panic recovered from an observer callback.
type CallbackError struct {
	Value any
	Stack []byte
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("stream: observer panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Option configures a subject.
type Option func(*options)

type options struct {
	onFailure func(error)
}

// WithFailureHandler routes callback failures that the failing observer
// does not handle itself.
func WithFailureHandler(fn func(error)) Option {
	return func(o *options) {
		o.onFailure = fn
	}
}

type subscriber[T any] struct {
	obs  Observer[T]
	sub  *Subscription
	last uint64 // version of the last value delivered
	mu   sync.Mutex
}

// Subject is a hot multicast stream.
type Subject[T any] struct {
	mu        sync.Mutex
	subs      []*subscriber[T]
	version   uint64
	completed bool
	opts      options

	replay bool
	latest T
}

// NewSubject creates a subject.
func NewSubject[T any](opts ...Option) *Subject[T] {
	s := &Subject[T]{}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Subscribe registers o for values emitted from now on.
func (s *Subject[T]) Subscribe(o Observer[T]) *Subscription {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		sub := newSubscription(nil)
		sub.closed.Store(true)
		if o.Complete != nil {
			s.guard(o, o.Complete)
		}
		return sub
	}
	rec := &subscriber[T]{obs: o, last: s.version}
	rec.sub = newSubscription(func() { s.remove(rec) })
	s.subs = append(s.subs, rec)
	replay, ver, latest := s.replay, s.version, s.latest
	if replay {
		rec.last = ver - 1
	}
	s.mu.Unlock()

	if replay {
		s.deliver(rec, ver, latest)
	}
	return rec.sub
}

func (s *Subject[T]) remove(rec *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.subs {
		if cur == rec {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Next emits v to every current subscriber in subscription order.
// Values emitted after Complete are dropped.
func (s *Subject[T]) Next(v T) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.version++
	ver := s.version
	if s.replay {
		s.latest = v
	}
	subs := s.subs
	s.mu.Unlock()

	for _, rec := range subs {
		s.deliver(rec, ver, v)
	}
}

func (s *Subject[T]) deliver(rec *subscriber[T], ver uint64, v T) {
	if rec.sub.Closed() || rec.obs.Next == nil {
		return
	}
	rec.mu.Lock()
	if ver <= rec.last {
		rec.mu.Unlock()
		return
	}
	rec.last = ver
	rec.mu.Unlock()
	s.guard(rec.obs, func() { rec.obs.Next(v) })
}

// Complete notifies and drops every subscriber. Later Subscribe calls
// complete immediately.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, rec := range subs {
		if rec.sub.closed.Swap(true) {
			continue
		}
		if rec.obs.Complete != nil {
			s.guard(rec.obs, rec.obs.Complete)
		}
	}
}

// Observers returns the number of active subscribers.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// guard runs fn and reports a recovered panic.
func (s *Subject[T]) guard(o Observer[T], fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(o, &CallbackError{Value: r, Stack: debug.Stack()})
		}
	}()
	fn()
}

func (s *Subject[T]) fail(o Observer[T], err error) {
	if o.Error != nil {
		defer func() {
			if r := recover(); r != nil {
				s.report(&CallbackError{Value: r, Stack: debug.Stack()})
			}
		}()
		o.Error(err)
		return
	}
	s.report(err)
}

func (s *Subject[T]) report(err error) {
	if s.opts.onFailure != nil {
		s.opts.onFailure(err)
		return
	}
	slog.Error("stream observer failed", "error", err)
}
