// Package engine implements the entity store: dispatch, reduction,
// publication and effect routing.
//
// ARCHITECTURE:
//
// Trampolined Dispatch:
// Dispatch enqueues the action on a FIFO queue. The caller that finds the
// store idle becomes the drainer and processes the queue until it is empty;
// every other caller (effects, subscribers, other goroutines) only enqueues.
// Exactly one reduction runs at a time and no reducer is ever re-entered.
//
// Action Processing:
//  1. seq stamped from the logical Clock
//  2. reducer pipeline computes the next cache version
//  3. the action is appended to the action log (when configured)
//  4. the new cache is published on the state stream (when it changed)
//  5. the action is published on the hot action stream
//  6. effects matching the action project follow-up actions, which are
//     enqueued behind everything already waiting
//
// Termination:
// Each drain counts processed actions against a step quota
// (WithMaxSteps, default DefaultMaxSteps). An effect feedback loop stops
// with *StepsExceededError instead of running forever.
//
// Failures inside reducers, effects and subscribers are logged and published
// on the Errors stream; processing continues with the next action.
package engine
