package batcher

import (
	"context"
	"time"

	"instabatch/internal/action"
	"instabatch/internal/timing"
)

// Fire describes one fired action.
type Fire struct {
	Signature timing.Signature
	Request   action.Request
	// Deadline is the planned completion; ExpectedStart is Deadline minus
	// the expected duration.
	Deadline      time.Time
	ExpectedStart time.Time
	Duration      time.Duration

	// Set once dispatch returned.
	Handle    string
	Attempts  int
	Latency   time.Duration
	Simulated bool
}

// Middleware observes the dispatch loop at fixed points. Hooks run on the
// loop goroutine and must return quickly.
type Middleware interface {
	BeforeTick(ctx context.Context, s Snapshot)
	BeforeFire(ctx context.Context, f Fire)
	AfterFire(ctx context.Context, f Fire, err error)
}

// Hooks adapts plain functions to Middleware; nil fields are skipped.
type Hooks struct {
	OnTick      func(ctx context.Context, s Snapshot)
	OnFire      func(ctx context.Context, f Fire)
	OnAfterFire func(ctx context.Context, f Fire, err error)
}

func (h Hooks) BeforeTick(ctx context.Context, s Snapshot) {
	if h.OnTick != nil {
		h.OnTick(ctx, s)
	}
}

func (h Hooks) BeforeFire(ctx context.Context, f Fire) {
	if h.OnFire != nil {
		h.OnFire(ctx, f)
	}
}

func (h Hooks) AfterFire(ctx context.Context, f Fire, err error) {
	if h.OnAfterFire != nil {
		h.OnAfterFire(ctx, f, err)
	}
}
