package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings ("250ms", "1s", "4.2s").
type Config struct {
	Run     RunConfig     `json:"run"`
	Stop    StopConfig    `json:"stop,omitempty"`
	Host    HostConfig    `json:"host"`
	Audit   AuditConfig   `json:"audit,omitempty"`
	Logging LoggingConfig `json:"logging"`
	Status  StatusConfig  `json:"status,omitempty"`
}

// RunConfig selects what gets batched and how.
//
// Defaults:
//   - method: hwgw
//   - interval: 1s
//   - lead_offset: 100ms
//   - max_batches: 0 (unbounded)
type RunConfig struct {
	HostingHost string `json:"hosting_host"`
	TargetHost  string `json:"target_host"`
	Method      string `json:"method,omitempty"`
	MaxBatches  int    `json:"max_batches,omitempty"`

	Interval   string `json:"interval,omitempty"`
	LeadOffset string `json:"lead_offset,omitempty"`

	Simulate bool `json:"simulate,omitempty"`
	Debug    bool `json:"debug,omitempty"`

	// Weights and Routines override the built-in catalog per kind.
	Weights  map[string]int    `json:"weights,omitempty"`
	Routines map[string]string `json:"routines,omitempty"`
}

// StopConfig combines completion predicates; the first one to hold stops
// the run.
type StopConfig struct {
	// Expression is a JavaScript expression over the run snapshot,
	// e.g. "batchesCount >= 10".
	Expression string `json:"expression,omitempty"`
	// At is a cron spec; the run stops at its first activation.
	At       string `json:"at,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	// File stops the run once it exists.
	File string `json:"file,omitempty"`
}

// HostConfig configures the local executor.
//
// Defaults:
//   - capacity: 64
//   - runner: sleep
//   - history_size: 200
type HostConfig struct {
	Capacity    int    `json:"capacity,omitempty"`
	Runner      string `json:"runner,omitempty"` // sleep | command
	RoutineDir  string `json:"routine_dir,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`

	Hosts    []HostEntry `json:"hosts"`
	Routines []string    `json:"routines,omitempty"`

	// Durations are the expected action durations per kind.
	Durations map[string]string `json:"durations"`
	// TargetDurations override Durations for one target.
	TargetDurations map[string]map[string]string `json:"target_durations,omitempty"`
}

type HostEntry struct {
	Name   string `json:"name"`
	Access *bool  `json:"access,omitempty"` // default true
}

// AuditConfig selects the audit sink.
//
// driver: file (default) | sqlite | none. With an empty path the file sink
// writes <dir>/<method>_method_batcher_log.jsonl.
type AuditConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	Dir         string `json:"dir,omitempty"`
	Keep        bool   `json:"keep,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StatusConfig enables the read-only HTTP status endpoint.
type StatusConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
	// Pprof mounts profiling handlers under /debug.
	Pprof         bool `json:"pprof,omitempty"`
	AllowInsecure bool `json:"allow_insecure,omitempty"`
}
