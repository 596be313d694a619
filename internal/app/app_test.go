package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"instabatch/internal/batcher"
	"instabatch/internal/config"
	logx "instabatch/pkg/logx"
)

func testConfig(t *testing.T, extra string) *Config {
	t.Helper()
	dir := t.TempDir()
	raw := `
run:
  hosting_host: home
  target_host: n00dles
  method: hwgw
  max_batches: 2
  interval: 20ms
  lead_offset: 10ms
host:
  capacity: 16
  hosts:
    - name: home
    - name: n00dles
  durations:
    hack: 30ms
    grow: 60ms
    weaken: 80ms
audit:
  dir: ` + dir + `
logging:
  level: error
  console: true
  file:
    enabled: false
    path: ""
` + extra
	cfg, err := config.Parse("test.yaml", []byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return cfg
}

func TestRunWritesAuditLog(t *testing.T) {
	cfg := testConfig(t, "")
	a, err := New(cfg, WithLogger(logx.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if !strings.HasSuffix(a.AuditPath(), "hwgw_method_batcher_log.jsonl") {
		t.Fatalf("audit path = %s", a.AuditPath())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := a.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.StopReason != batcher.StopBatchCap || res.ActionsCount != 8 || res.FiredCount != 8 {
		t.Fatalf("result = %+v", res)
	}
	if snap := a.pool.Snapshot(); snap.InFlight != 0 || snap.Dispatched != 8 {
		t.Fatalf("pool = %+v", snap)
	}

	b, err := os.ReadFile(a.AuditPath())
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(b), "\n"); lines != 8 {
		t.Fatalf("audit lines = %d", lines)
	}

	sums, err := Report(ctx, cfg, "")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(sums) != 1 || sums[0].RunID != res.RunID || sums[0].Fired != 8 || sums[0].Batches != 2 {
		t.Fatalf("report = %+v", sums)
	}
}

func TestRunRejectsUnknownHost(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Run.TargetHost = "ecorp"
	a, err := New(cfg, WithLogger(logx.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.Run(context.Background()); !errors.Is(err, batcher.ErrInvalidHost) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRejectsBadExpression(t *testing.T) {
	cfg := testConfig(t, "stop:\n  expression: \"batchesCount >=\"\n")
	if _, err := New(cfg, WithLogger(logx.Nop())); !errors.Is(err, batcher.ErrInvalidPredicate) {
		t.Fatalf("err = %v", err)
	}
}

func TestStopExpression(t *testing.T) {
	cfg := testConfig(t, "stop:\n  expression: \"actionsCount >= 3\"\n")
	cfg.Run.MaxBatches = 0
	cfg.Run.Simulate = true
	a, err := New(cfg, WithLogger(logx.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := a.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.StopReason != batcher.StopPredicate || res.ActionsCount != 3 {
		t.Fatalf("result = %+v", res)
	}
}

func TestPlan(t *testing.T) {
	cfg := testConfig(t, "stop:\n  file: "+filepath.Join(t.TempDir(), "STOP")+"\n")
	cfg.Run.MaxBatches = 0
	cfg.Run.Interval = "1s"
	cfg.Host.Durations = map[string]string{"hack": "1s", "grow": "3.2s", "weaken": "4s"}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fires, _, err := Plan(context.Background(), cfg, start, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(fires) != 6 {
		t.Fatalf("fires = %d", len(fires))
	}
	// weaken-0-1 completes first among the early fires: 4.1s offset + 1 slot.
	first := fires[0]
	if first.Signature.String() != "weaken-0-1" {
		t.Fatalf("first fire = %s", first.Signature)
	}
	if want := start.Add(5100 * time.Millisecond); !first.Deadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", first.Deadline, want)
	}
	if want := start.Add(1100 * time.Millisecond); !first.ExpectedStart.Equal(want) {
		t.Fatalf("expected start = %v, want %v", first.ExpectedStart, want)
	}
	for _, f := range fires {
		if !f.Simulated || f.Handle != "" {
			t.Fatalf("fire %s dispatched for real", f.Signature)
		}
	}
}

func TestLeadOffsetMapping(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "unset", raw: "", want: batcher.DefaultLeadOffset},
		{name: "explicit zero", raw: "0s", want: 0},
		{name: "explicit", raw: "250ms", want: 250 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Run: config.RunConfig{HostingHost: "home", TargetHost: "n00dles", LeadOffset: tc.raw}}
			bcfg, err := mapBatcherConfig(cfg)
			if err != nil {
				t.Fatalf("map: %v", err)
			}
			if bcfg.LeadOffset != tc.want {
				t.Fatalf("lead offset = %s, want %s", bcfg.LeadOffset, tc.want)
			}
		})
	}
}
