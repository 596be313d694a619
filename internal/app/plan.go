package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"instabatch/internal/audit"
	"instabatch/internal/batcher"
	"instabatch/internal/config"
	"instabatch/internal/timing"
	logx "instabatch/pkg/logx"
)

// Plan simulates cfg on a virtual clock starting at start and returns the
// first n fires. Wall-clock stop conditions and side outputs are disabled.
func Plan(ctx context.Context, cfg *Config, start time.Time, n int) ([]batcher.Fire, batcher.Result, error) {
	if n <= 0 {
		n = 16
	}
	c := *cfg
	c.Run.Simulate = true
	c.Audit = config.AuditConfig{Driver: "none"}
	c.Status.Enabled = false
	c.Stop.At = ""
	c.Stop.File = ""

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fires []batcher.Fire
	collect := batcher.Hooks{OnAfterFire: func(_ context.Context, f batcher.Fire, err error) {
		if err != nil {
			return
		}
		fires = append(fires, f)
		if len(fires) >= n {
			cancel()
		}
	}}

	a, err := New(&c, WithClock(timing.NewVirtualClock(start)), WithLogger(logx.Nop()), WithMiddleware(collect))
	if err != nil {
		return nil, batcher.Result{}, err
	}
	defer a.Close()

	res, err := a.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, res, err
	}
	return fires, res, nil
}

// RunSummary aggregates one run from the audit log.
type RunSummary struct {
	RunID         string
	Fired         int
	Batches       int
	Simulated     bool
	First, Last   time.Time
	MaxDrift      time.Duration
	MaxLatency    time.Duration
	TotalAttempts int
}

// Report reads the audit log configured in cfg and summarizes each run,
// ordered by first fire. runID filters to one run when set.
func Report(ctx context.Context, cfg *Config, runID string) ([]RunSummary, error) {
	bcfg, err := mapBatcherConfig(cfg)
	if err != nil {
		return nil, err
	}
	acfg, err := mapAuditConfig(cfg, bcfg.Method)
	if err != nil {
		return nil, err
	}
	r, closeFn, err := audit.OpenReader(acfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	recs, err := r.Records(ctx, runID)
	if err != nil {
		return nil, err
	}
	return summarize(recs), nil
}

func summarize(recs []audit.Record) []RunSummary {
	byRun := map[string]*RunSummary{}
	batches := map[string]map[int]bool{}
	for _, rec := range recs {
		s, ok := byRun[rec.RunID]
		if !ok {
			s = &RunSummary{RunID: rec.RunID, First: rec.FiredAt}
			byRun[rec.RunID] = s
			batches[rec.RunID] = map[int]bool{}
		}
		s.Fired++
		s.TotalAttempts += rec.Attempts
		s.Simulated = s.Simulated || rec.Simulated
		batches[rec.RunID][rec.Batch] = true
		if rec.FiredAt.Before(s.First) {
			s.First = rec.FiredAt
		}
		if rec.FiredAt.After(s.Last) {
			s.Last = rec.FiredAt
		}
		if d := time.Duration(rec.DriftMS) * time.Millisecond; d > s.MaxDrift {
			s.MaxDrift = d
		}
		if l := time.Duration(rec.DispatchLatencyMS) * time.Millisecond; l > s.MaxLatency {
			s.MaxLatency = l
		}
	}
	out := make([]RunSummary, 0, len(byRun))
	for id, s := range byRun {
		s.Batches = len(batches[id])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].First.Before(out[j].First) })
	return out
}
