package audit

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("audit disabled")

// Config configures the audit sink.
type Config struct {
	Driver string
	Path   string
	// Keep appends to an existing file log instead of starting a fresh one.
	Keep        bool
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// KeyExecution tags records written for a fired action.
const KeyExecution = "log_execution"

// Record is one fired action. Keep it compact and schema-stable.
type Record struct {
	Key       string `json:"key"`
	RunID     string `json:"run_id"`
	Signature string `json:"signature"`
	Kind      string `json:"kind"`
	Batch     int    `json:"batch"`
	Position  int    `json:"position"`

	FiredAt            time.Time `json:"fired_at"`
	ExpectedFinishedAt time.Time `json:"expected_finished_at"`
	ExpectedExecutedAt time.Time `json:"expected_executed_at"`

	ExpectedDurationMS int64 `json:"expected_duration_ms"`
	DispatchLatencyMS  int64 `json:"dispatch_latency_ms"`
	DriftMS            int64 `json:"drift_ms"`

	Handle    string `json:"handle,omitempty"`
	Attempts  int    `json:"attempts"`
	Simulated bool   `json:"simulated,omitempty"`
}

// Sink receives records. Append must not block the caller for long;
// failures are reported but never stop a run.
type Sink interface {
	Append(ctx context.Context, r Record) error
	// Path is where records end up ("" when discarded).
	Path() string
	Close() error
}

// Reader loads records back, optionally filtered by run.
type Reader interface {
	Records(ctx context.Context, runID string) ([]Record, error)
}

// Millis converts a duration to whole milliseconds for records.
func Millis(d time.Duration) int64 { return d.Milliseconds() }
