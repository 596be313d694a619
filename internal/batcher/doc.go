// Package batcher runs the dispatch loop.
//
// A run schedules a repeating order of actions (for example hack, weaken,
// grow, weaken) so that their completions land on an evenly spaced lattice.
// Each action is launched just late enough to finish in its slot: the loop
// polls every kind of the order, fires the ones whose start is due, and
// advances the head of the order once its action has been fired.
//
// All schedule state is owned by the goroutine calling Run. Collaborators
// (durations, dispatch, host resolution, completion predicate, clock) are
// injected through Deps.
package batcher
