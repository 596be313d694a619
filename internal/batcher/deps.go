package batcher

import (
	"context"
	"time"

	"instabatch/internal/action"
	"instabatch/internal/audit"
	"instabatch/internal/eventbus"
	"instabatch/internal/timing"
	logx "instabatch/pkg/logx"
)

// DurationSource reports how long one action of kind takes against target.
type DurationSource interface {
	DurationOf(kind action.Kind, target string) time.Duration
}

// Dispatcher starts an action asynchronously and returns an opaque handle.
// Any error is treated as transient and retried.
type Dispatcher interface {
	Dispatch(ctx context.Context, req action.Request) (string, error)
}

// Resolver checks hosts and routine availability before a run.
type Resolver interface {
	Resolve(ctx context.Context, name string) error
	HasRoutine(routine string) bool
}

// CompletionPredicate ends a run when it returns true. It must not retain
// the snapshot.
type CompletionPredicate func(Snapshot) bool

// Deps are the collaborators of a Scheduler. Durations is required;
// Dispatcher is required unless the run is simulated.
type Deps struct {
	Durations  DurationSource
	Dispatcher Dispatcher
	Resolver   Resolver
	Predicate  CompletionPredicate
	Clock      timing.Clock
	Audit      audit.Sink
	Bus        eventbus.Bus
	Logger     logx.Logger
	Middleware []Middleware
}
