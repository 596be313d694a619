// Package timing computes where actions land on the completion lattice.
//
// Completions are spaced by a fixed interval; the n-th slot of a run (batch b,
// position p, n = b*len(order)+p) completes at
//
//	start + n*interval + globalOffset + drift
//
// The model is pure: callers own the clock, the schedule counters and the
// drift accumulator and pass them in.
package timing
