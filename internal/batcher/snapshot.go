package batcher

import "time"

// Snapshot is a read-only view of a run, fed to completion predicates,
// middleware and the status endpoint.
type Snapshot struct {
	RunID          string        `json:"run_id"`
	TargetHost     string        `json:"target_host"`
	HostingHost    string        `json:"hosting_host"`
	BatchingMethod string        `json:"batching_method"`
	ActionInterval time.Duration `json:"action_interval"`

	BatchIndex   int `json:"batch_index"`
	ActionIndex  int `json:"action_index"`
	ActionsCount int `json:"actions_count"`
	BatchesCount int `json:"batches_count"`
	FiredCount   int `json:"fired_count"`

	// ActionSignature is the head signature the run is waiting on.
	ActionSignature string   `json:"action_signature"`
	FiredSignatures []string `json:"fired_signatures"`

	Drift time.Duration `json:"drift"`
	Time  time.Time     `json:"time"`
}

// Result summarizes a finished run.
type Result struct {
	RunID        string        `json:"run_id"`
	BatchesCount int           `json:"batches_count"`
	ActionsCount int           `json:"actions_count"`
	FiredCount   int           `json:"fired_count"`
	AuditPath    string        `json:"audit_path,omitempty"`
	StopReason   StopReason    `json:"stop_reason"`
	Drift        time.Duration `json:"drift"`
	// LastCompletionAt is the latest planned completion among fired
	// actions; zero when nothing fired.
	LastCompletionAt time.Time `json:"last_completion_at,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	StoppedAt        time.Time `json:"stopped_at"`
}
