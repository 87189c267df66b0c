// Package stream provides the synchronous broadcast streams the store
// publishes on.
//
// Subject is hot: subscribers see only values emitted after they subscribe.
// BehaviorSubject replays its latest value to each new subscriber. Delivery
// is synchronous, in subscription order, on the emitting goroutine.
//
// A panic inside an observer callback is recovered and reported as a
// *CallbackError: first to the observer's own Error callback, otherwise to
// the subject's failure handler, otherwise to the default logger. Delivery
// to the remaining observers continues.
package stream
