package stream

// BehaviorSubject is a Subject that remembers its latest value and replays
// it to each new subscriber before any later value.
type BehaviorSubject[T any] struct {
	*Subject[T]
}

// NewBehaviorSubject creates a subject holding initial.
func NewBehaviorSubject[T any](initial T, opts ...Option) *BehaviorSubject[T] {
	s := NewSubject[T](opts...)
	s.replay = true
	s.latest = initial
	s.version = 1
	return &BehaviorSubject[T]{Subject: s}
}

// Value returns the latest value.
func (b *BehaviorSubject[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}
