// Package host runs dispatched actions on a local, capacity-limited pool.
//
// The pool owns a fixed number of execution units. Dispatch claims an
// action's weight in units without blocking: when the pool is saturated it
// returns ErrSaturated and the caller retries later. Accepted actions run in
// supervised goroutines and release their units when they finish; the
// dispatcher never waits for completion.
//
// The package also provides the static lookups the batcher validates and
// times against: host inventory, routine availability and action durations.
package host
