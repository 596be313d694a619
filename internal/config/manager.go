package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"instabatch/internal/action"
)

// Load reads, decodes and validates the config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data strictly. The format follows the extension of name:
// .yaml/.yml is YAML, everything else JSON.
func Parse(name string, data []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(name, data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field syntax. Cross-resource checks (hosts, routines)
// happen when the run is validated.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Run.MaxBatches < 0 {
		return fmt.Errorf("run.max_batches must be >= 0")
	}
	if _, err := ParseDurationField("run.interval", c.Run.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("run.lead_offset", c.Run.LeadOffset); err != nil {
		return err
	}
	if m := strings.TrimSpace(c.Run.Method); m != "" {
		if _, ok := action.LookupOrder(m); !ok {
			return fmt.Errorf("run.method: unknown %q (known: %s)", m, strings.Join(action.OrderNames(), ", "))
		}
	}
	for k, w := range c.Run.Weights {
		if _, err := action.ParseKind(k); err != nil {
			return fmt.Errorf("run.weights: %w", err)
		}
		if w <= 0 {
			return fmt.Errorf("run.weights.%s must be > 0", k)
		}
	}
	for k, r := range c.Run.Routines {
		if _, err := action.ParseKind(k); err != nil {
			return fmt.Errorf("run.routines: %w", err)
		}
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("run.routines.%s must not be empty", k)
		}
	}

	if c.Host.Capacity < 0 {
		return fmt.Errorf("host.capacity must be >= 0")
	}
	if c.Host.HistorySize < 0 {
		return fmt.Errorf("host.history_size must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.Host.Runner)) {
	case "", "sleep", "command":
	default:
		return fmt.Errorf("host.runner: unknown %q (sleep|command)", c.Host.Runner)
	}
	if _, err := ParseDurationField("host.timeout", c.Host.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationMap("host.durations", c.Host.Durations); err != nil {
		return err
	}
	for target, m := range c.Host.TargetDurations {
		if _, err := ParseDurationMap("host.target_durations."+target, m); err != nil {
			return err
		}
	}
	for i, h := range c.Host.Hosts {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("host.hosts[%d].name required", i)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Audit.Driver)) {
	case "", "file", "sqlite", "sqlite3", "none":
	default:
		return fmt.Errorf("audit.driver: unknown %q (file|sqlite|none)", c.Audit.Driver)
	}
	if _, err := ParseDurationField("audit.busy_timeout", c.Audit.BusyTimeout); err != nil {
		return err
	}

	if c.Status.Enabled && strings.TrimSpace(c.Status.Addr) == "" {
		return fmt.Errorf("status.addr required when status.enabled")
	}
	return nil
}
