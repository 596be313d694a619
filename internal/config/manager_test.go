package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"instabatch/internal/action"
)

const sampleYAML = `
run:
  hosting_host: home
  target_host: n00dles
  method: hgw
  max_batches: 5
  interval: 250ms
  weights:
    grow: 4
stop:
  expression: "batchesCount >= 3"
host:
  capacity: 32
  hosts:
    - name: home
    - name: n00dles
  durations:
    hack: 1s
    grow: 3.2s
    weaken: 4s
  target_durations:
    n00dles:
      hack: 500ms
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse("config.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Run.Method != "hgw" || cfg.Run.MaxBatches != 5 || cfg.Run.Weights["grow"] != 4 {
		t.Fatalf("run = %+v", cfg.Run)
	}
	d, err := ParseDurationMap("host.durations", cfg.Host.Durations)
	if err != nil {
		t.Fatal(err)
	}
	if d[action.Grow] != 3200*time.Millisecond {
		t.Fatalf("grow = %s", d[action.Grow])
	}
	if len(cfg.Host.Hosts) != 2 || cfg.Host.Hosts[0].Access != nil {
		t.Fatalf("hosts = %+v", cfg.Host.Hosts)
	}
}

func TestParseJSONSniffed(t *testing.T) {
	raw := `{"run":{"hosting_host":"home","target_host":"n00dles"},"host":{"hosts":[],"durations":{}},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}}}`
	cfg, err := Parse("-", []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Run.TargetHost != "n00dles" {
		t.Fatalf("run = %+v", cfg.Run)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse("c.yaml", []byte("run:\n  hosting_host: home\n  batch_size: 3\n"))
	if err == nil || !strings.Contains(err.Error(), "batch_size") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, err := Parse("c.json", []byte(`{"run":{}} {"run":{}}`)); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"run.max_batches":  func(c *Config) { c.Run.MaxBatches = -1 },
		"run.interval":     func(c *Config) { c.Run.Interval = "fast" },
		"run.method":       func(c *Config) { c.Run.Method = "hhh" },
		"run.weights.grow": func(c *Config) { c.Run.Weights = map[string]int{"grow": 0} },
		"host.runner":      func(c *Config) { c.Host.Runner = "ssh" },
		"host.durations":   func(c *Config) { c.Host.Durations = map[string]string{"hack": "-1s"} },
		"audit.driver":     func(c *Config) { c.Audit.Driver = "postgres" },
		"status.addr":      func(c *Config) { c.Status.Enabled = true },
	}
	for want, mut := range cases {
		cfg, err := Parse("c.yaml", []byte(sampleYAML))
		if err != nil {
			t.Fatal(err)
		}
		mut(cfg)
		err = cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: err = %v", want, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instabatch.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Host.Capacity != 32 {
		t.Fatalf("capacity = %d", cfg.Host.Capacity)
	}
}
