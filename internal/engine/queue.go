package engine

import (
	"sync"

	"github.com/roach88/entcache/internal/ir"
)

// actionQueue is a thread-safe FIFO queue of pending actions.
//
// The queue is unbounded so effects can enqueue follow-up actions without
// blocking the drainer that is running them.
type actionQueue struct {
	mu      sync.Mutex
	actions []ir.Action
	closed  bool
}

// newActionQueue creates an empty queue.
func newActionQueue() *actionQueue {
	return &actionQueue{
		actions: make([]ir.Action, 0, 16),
	}
}

// Enqueue adds an action to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue) Enqueue(a ir.Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)
	return true
}

// TryDequeue removes and returns the front action.
// Returns (nil, false) if the queue is empty.
func (q *actionQueue) TryDequeue() (ir.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return nil, false
	}

	a := q.actions[0]
	// Nil out the slot so the backing array does not retain the action.
	q.actions[0] = nil
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Drain removes every pending action and returns how many were dropped.
func (q *actionQueue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.actions)
	clear(q.actions)
	q.actions = q.actions[:0]
	return n
}

// Len returns the current queue length.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close rejects further Enqueue calls. Pending actions stay dequeueable.
func (q *actionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
