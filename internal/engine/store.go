package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/entcache/internal/cache"
	"github.com/roach88/entcache/internal/effects"
	"github.com/roach88/entcache/internal/ir"
	"github.com/roach88/entcache/internal/reducer"
	"github.com/roach88/entcache/internal/stream"
)

// Store owns the current cache version and runs the dispatch cycle.
//
// Thread-safety model:
//   - Dispatch: safe from any goroutine, including from inside effects and
//     subscribers
//   - State, Actions, Errors, Select: safe from any goroutine
//   - reducer and effects only ever run on the draining goroutine
type Store struct {
	mu       sync.Mutex // guards state, draining, closed
	state    *cache.Cache
	draining bool
	closed   bool

	reducer reducer.Reducer
	effects []effects.Effect
	queue   *actionQueue
	clock   *Clock

	states  *stream.BehaviorSubject[*cache.Cache]
	actions *stream.Subject[ir.Action]
	errs    *stream.Subject[error]

	maxSteps  int
	log       ActionLog
	onFailure func(error)
}

// New creates a store from a ready reducer and effects source. A nil
// source means no effects. Without WithInitialState the cache starts empty.
func New(r reducer.Reducer, src effects.Source, opts ...Option) *Store {
	s := &Store{
		reducer:  r,
		queue:    newActionQueue(),
		clock:    NewClock(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.state == nil {
		s.state = cache.Empty()
	}
	if src != nil {
		s.effects = append([]effects.Effect(nil), src.Effects()...)
	}

	s.errs = stream.NewSubject[error](stream.WithFailureHandler(func(err error) {
		slog.Error("error subscriber failed", "error", err)
	}))
	subscriberFailed := stream.WithFailureHandler(func(err error) {
		s.fail(&RuntimeError{Code: ErrCodeSubscriber, Message: "subscriber panicked", Err: err})
	})
	s.states = stream.NewBehaviorSubject(s.state, subscriberFailed)
	s.actions = stream.NewSubject[ir.Action](subscriberFailed)
	return s
}

// State returns the current cache version.
func (s *Store) State() *cache.Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// States is the state stream. New subscribers receive the current cache
// first, then every later version.
func (s *Store) States() stream.Observable[*cache.Cache] {
	return s.states
}

// Actions is the hot stream of processed actions. Subscribers see only
// actions processed after they subscribe.
func (s *Store) Actions() stream.Observable[ir.Action] {
	return s.actions
}

// Errors is the stream of runtime failures.
func (s *Store) Errors() stream.Observable[error] {
	return s.errs
}

// Dispatch processes a and every action its effects derive, in FIFO order.
//
// When another dispatch is already draining the queue (for example when
// Dispatch is called from an effect or subscriber), a is enqueued and
// Dispatch returns nil immediately; the active drainer processes it.
//
// Returns *StepsExceededError when the drain exceeds the step quota and
// the context error when ctx is done. Failures of individual reducers,
// effects and subscribers do not fail Dispatch; they are published on
// Errors.
func (s *Store) Dispatch(ctx context.Context, a ir.Action) error {
	if a == nil {
		return fmt.Errorf("dispatch: nil action")
	}
	if !s.queue.Enqueue(a) {
		return ErrClosed
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	s.mu.Unlock()

	return s.drain(ctx, a.Type())
}

// drain processes the queue until it is empty.
func (s *Store) drain(ctx context.Context, origin string) error {
	quota := NewQuotaEnforcer(s.maxSteps)
	for {
		a, ok := s.queue.TryDequeue()
		if !ok {
			s.mu.Lock()
			if s.queue.Len() > 0 {
				s.mu.Unlock()
				continue
			}
			s.draining = false
			s.mu.Unlock()
			return nil
		}

		if err := ctx.Err(); err != nil {
			dropped := s.abortDrain()
			slog.Warn("dispatch canceled",
				"origin", origin,
				"dropped", dropped+1,
				"error", err,
			)
			return err
		}

		if err := quota.Check(origin); err != nil {
			dropped := s.abortDrain()
			slog.Error("max steps quota exceeded",
				"origin", origin,
				"steps", quota.Current(),
				"limit", quota.MaxSteps(),
				"dropped", dropped+1,
				"event", "quota_exceeded",
			)
			s.fail(&RuntimeError{
				Code:       ErrCodeQuotaExceeded,
				Message:    "dispatch stopped",
				ActionType: a.Type(),
				Err:        err,
			})
			return err
		}

		s.process(ctx, a)
	}
}

// abortDrain drops every queued action and releases the drainer role.
// Both happen under mu, so a Dispatch racing the abort either has its
// action dropped here or becomes the next drainer.
func (s *Store) abortDrain() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.queue.Drain()
	s.draining = false
	return dropped
}

// process reduces, records, publishes and routes one action.
// Called only by the drainer.
func (s *Store) process(ctx context.Context, a ir.Action) {
	seq := s.clock.Next()
	slog.Debug("processing action",
		"seq", seq,
		"type", a.Type(),
	)

	prev := s.State()
	next := s.reduce(prev, a)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	if s.log != nil {
		if err := s.log.AppendAction(ctx, seq, a); err != nil {
			s.fail(&RuntimeError{
				Code:       ErrCodeActionLog,
				Message:    fmt.Sprintf("append seq %d", seq),
				ActionType: a.Type(),
				Err:        err,
			})
		}
	}

	if next != prev {
		s.states.Next(next)
	}
	s.actions.Next(a)
	s.runEffects(ctx, a)
}

// reduce runs the reducer pipeline, keeping prev when it panics or returns
// nil.
func (s *Store) reduce(prev *cache.Cache, a ir.Action) (next *cache.Cache) {
	if s.reducer == nil {
		return prev
	}
	defer func() {
		if r := recover(); r != nil {
			s.fail(&RuntimeError{
				Code:       ErrCodeReducerPanic,
				Message:    fmt.Sprintf("reducer panicked: %v", r),
				ActionType: a.Type(),
			})
			next = prev
		}
	}()
	next = s.reducer(prev, a)
	if next == nil {
		next = prev
	}
	return next
}

// runEffects enqueues the follow-up action of every matching effect, in
// effect order.
func (s *Store) runEffects(ctx context.Context, a ir.Action) {
	for _, eff := range s.effects {
		out, ok := s.project(ctx, eff, a)
		if !ok || out == nil {
			continue
		}
		slog.Debug("effect emitted",
			"effect", eff.Name,
			"trigger", a.Type(),
			"type", out.Type(),
		)
		if !s.queue.Enqueue(out) {
			slog.Warn("effect output dropped: store closed",
				"effect", eff.Name,
				"type", out.Type(),
			)
		}
	}
}

func (s *Store) project(ctx context.Context, eff effects.Effect, a ir.Action) (out ir.Action, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(&RuntimeError{
				Code:       ErrCodeEffectPanic,
				Message:    fmt.Sprintf("effect panicked: %v", r),
				ActionType: a.Type(),
				Effect:     eff.Name,
			})
			out, ok = nil, false
		}
	}()
	if eff.Match == nil || eff.Project == nil || !eff.Match(a) {
		return nil, false
	}
	return eff.Project(ctx, a)
}

// fail logs err and publishes it on the Errors stream.
func (s *Store) fail(err error) {
	slog.Error("runtime failure", "error", err)
	if s.onFailure != nil {
		s.onFailure(err)
	}
	if s.errs != nil {
		s.errs.Next(err)
	}
}

// ReportError publishes err as an invalid-data failure for a. Wired as the
// base reducer's error handler by Build.
func (s *Store) ReportError(a ir.Action, err error) {
	s.fail(&RuntimeError{
		Code:       ErrCodeInvalidData,
		Message:    "action data rejected",
		ActionType: a.Type(),
		Err:        err,
	})
}

// Close completes every stream and rejects further dispatch. Safe to call
// more than once.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.queue.Close()
	s.states.Complete()
	s.actions.Complete()
	s.errs.Complete()
}

// Clock returns the store's logical clock.
func (s *Store) Clock() *Clock {
	return s.clock
}

// Reducer returns the composed reducer pipeline.
func (s *Store) Reducer() reducer.Reducer {
	return s.reducer
}
