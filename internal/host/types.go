package host

import (
	"context"
	"errors"
	"time"

	"instabatch/internal/action"
)

var (
	ErrSaturated   = errors.New("host pool saturated")
	ErrStopped     = errors.New("host pool stopped")
	ErrUnknownHost = errors.New("unknown host")
	ErrNoAccess    = errors.New("no access to host")
)

// Config controls the pool.
type Config struct {
	// Capacity is the number of execution units shared by all actions.
	Capacity int
	// HistorySize bounds the in-memory history (default 200).
	HistorySize int
}

// Runner executes one action to completion.
type Runner interface {
	Run(ctx context.Context, req action.Request) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req action.Request) error

func (f RunnerFunc) Run(ctx context.Context, req action.Request) error { return f(ctx, req) }

// HistoryItem records one finished action.
type HistoryItem struct {
	Handle    string        `json:"handle"`
	Signature string        `json:"signature"`
	Kind      string        `json:"kind"`
	Weight    int           `json:"weight"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ActionEvent is published on the event bus for action lifecycle events.
type ActionEvent struct {
	Handle    string        `json:"handle"`
	Signature string        `json:"signature"`
	Kind      string        `json:"kind"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Capacity   int           `json:"capacity"`
	Used       int           `json:"used"`
	InFlight   int           `json:"in_flight"`
	Dispatched uint64        `json:"dispatched"`
	Saturated  uint64        `json:"saturated"`
	Failed     uint64        `json:"failed"`
	History    []HistoryItem `json:"history"`
}
