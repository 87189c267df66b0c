package stream

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](src Observable[T]) (*[]T, *Subscription) {
	var got []T
	sub := src.Subscribe(NextFunc(func(v T) { got = append(got, v) }))
	return &got, sub
}

func TestSubject_HotNoReplay(t *testing.T) {
	s := NewSubject[int]()
	s.Next(1)

	got, _ := collect[int](s)
	s.Next(2)
	s.Next(3)

	assert.Equal(t, []int{2, 3}, *got)
}

func TestSubject_SubscriptionOrder(t *testing.T) {
	s := NewSubject[string]()
	var order []string
	s.Subscribe(NextFunc(func(v string) { order = append(order, "a:"+v) }))
	s.Subscribe(NextFunc(func(v string) { order = append(order, "b:"+v) }))

	s.Next("x")
	assert.Equal(t, []string{"a:x", "b:x"}, order)
}

func TestSubject_UnsubscribeBeforeEmit(t *testing.T) {
	s := NewSubject[int]()
	got, sub := collect[int](s)

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Next(1)

	assert.Empty(t, *got)
	assert.True(t, sub.Closed())
	assert.Equal(t, 0, s.Observers())
}

func TestSubject_UnsubscribeInsideCallback(t *testing.T) {
	s := NewSubject[int]()
	var got []int
	var sub *Subscription
	sub = s.Subscribe(NextFunc(func(v int) {
		got = append(got, v)
		sub.Unsubscribe()
	}))

	s.Next(1)
	s.Next(2)
	assert.Equal(t, []int{1}, got)
}

func TestSubject_LaterSubscriberUnsubscribedMidDelivery(t *testing.T) {
	s := NewSubject[int]()
	var second *Subscription
	var got []int
	s.Subscribe(NextFunc(func(int) { second.Unsubscribe() }))
	second = s.Subscribe(NextFunc(func(v int) { got = append(got, v) }))

	s.Next(1)
	assert.Empty(t, got, "unsubscribe must stop delivery immediately")
}

func TestSubject_PanicRoutedToObserverError(t *testing.T) {
	s := NewSubject[int]()
	var errs []error
	var after []int
	s.Subscribe(Observer[int]{
		Next:  func(int) { panic("boom") },
		Error: func(err error) { errs = append(errs, err) },
	})
	s.Subscribe(NextFunc(func(v int) { after = append(after, v) }))

	s.Next(7)

	require.Len(t, errs, 1)
	var cbErr *CallbackError
	require.ErrorAs(t, errs[0], &cbErr)
	assert.Equal(t, "boom", cbErr.Value)
	assert.NotEmpty(t, cbErr.Stack)
	assert.Equal(t, []int{7}, after, "other observers still receive the value")
}

func TestSubject_PanicRoutedToFailureHandler(t *testing.T) {
	var failures []error
	s := NewSubject[int](WithFailureHandler(func(err error) { failures = append(failures, err) }))
	sentinel := errors.New("sentinel")
	s.Subscribe(NextFunc(func(int) { panic(sentinel) }))

	s.Next(1)

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], sentinel)
}

func TestSubject_PanicInErrorCallback(t *testing.T) {
	var failures []error
	s := NewSubject[int](WithFailureHandler(func(err error) { failures = append(failures, err) }))
	s.Subscribe(Observer[int]{
		Next:  func(int) { panic("first") },
		Error: func(error) { panic("second") },
	})

	s.Next(1)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "second")
}

func TestSubject_Complete(t *testing.T) {
	s := NewSubject[int]()
	completed := 0
	s.Subscribe(Observer[int]{Complete: func() { completed++ }})

	s.Complete()
	s.Complete()
	s.Next(1)
	assert.Equal(t, 1, completed)

	late := s.Subscribe(Observer[int]{Complete: func() { completed++ }})
	assert.Equal(t, 2, completed)
	assert.True(t, late.Closed())
}

func TestSubject_ConcurrentNext(t *testing.T) {
	s := NewSubject[int]()
	var mu sync.Mutex
	count := 0
	s.Subscribe(NextFunc(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
}

func TestBehaviorSubject_ReplaysLatest(t *testing.T) {
	b := NewBehaviorSubject(0)
	b.Next(1)
	b.Next(2)

	got, _ := collect[int](b)
	b.Next(3)

	assert.Equal(t, []int{2, 3}, *got)
	assert.Equal(t, 3, b.Value())
}

func TestBehaviorSubject_InitialValue(t *testing.T) {
	b := NewBehaviorSubject("init")
	got, _ := collect[string](b)
	assert.Equal(t, []string{"init"}, *got)
}
