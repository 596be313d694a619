package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"instabatch/internal/action"
	"instabatch/internal/audit"
	"instabatch/internal/batcher"
	"instabatch/internal/config"
	"instabatch/internal/host"
	logx "instabatch/pkg/logx"
)

const (
	defaultCapacity = 64
	auditFileSuffix = "_method_batcher_log.jsonl"
)

func mapBatcherConfig(cfg *Config) (batcher.Config, error) {
	rc := cfg.Run
	interval, err := parseDurationOrDefault("run.interval", rc.Interval, batcher.DefaultInterval)
	if err != nil {
		return batcher.Config{}, err
	}
	// An explicit "0s" disables the lead offset; only an unset field
	// takes the default.
	lead := batcher.DefaultLeadOffset
	if strings.TrimSpace(rc.LeadOffset) != "" {
		if lead, err = config.ParseDurationField("run.lead_offset", rc.LeadOffset); err != nil {
			return batcher.Config{}, err
		}
	}

	cat := action.DefaultCatalog()
	if len(rc.Weights) > 0 {
		w := make(map[action.Kind]int, len(rc.Weights))
		for k, v := range rc.Weights {
			kind, err := action.ParseKind(k)
			if err != nil {
				return batcher.Config{}, fmt.Errorf("run.weights: %w", err)
			}
			w[kind] = v
		}
		cat = cat.WithWeights(w)
	}
	if len(rc.Routines) > 0 {
		r := make(map[action.Kind]string, len(rc.Routines))
		for k, v := range rc.Routines {
			kind, err := action.ParseKind(k)
			if err != nil {
				return batcher.Config{}, fmt.Errorf("run.routines: %w", err)
			}
			r[kind] = strings.TrimSpace(v)
		}
		cat = cat.WithRoutines(r)
	}

	return batcher.Config{
		HostingHost: rc.HostingHost,
		TargetHost:  rc.TargetHost,
		Method:      rc.Method,
		MaxBatches:  rc.MaxBatches,
		Interval:    interval,
		LeadOffset:  lead,
		Catalog:     cat,
		Simulate:    rc.Simulate,
		Debug:       rc.Debug,
	}.WithDefaults(), nil
}

func mapHostConfig(cfg *Config) host.Config {
	c := host.Config{Capacity: cfg.Host.Capacity, HistorySize: cfg.Host.HistorySize}
	if c.Capacity <= 0 {
		c.Capacity = defaultCapacity
	}
	return c
}

func mapDurations(cfg *Config) (host.StaticDurations, error) {
	def, err := config.ParseDurationMap("host.durations", cfg.Host.Durations)
	if err != nil {
		return host.StaticDurations{}, err
	}
	d := host.StaticDurations{Default: def}
	if len(cfg.Host.TargetDurations) > 0 {
		d.PerTarget = make(map[string]map[action.Kind]time.Duration, len(cfg.Host.TargetDurations))
		for target, raw := range cfg.Host.TargetDurations {
			m, err := config.ParseDurationMap("host.target_durations."+target, raw)
			if err != nil {
				return host.StaticDurations{}, err
			}
			d.PerTarget[target] = m
		}
	}
	return d, nil
}

func mapInventory(cfg *Config, runner *host.CommandRunner) *host.Inventory {
	hosts := make([]host.Host, 0, len(cfg.Host.Hosts))
	for _, h := range cfg.Host.Hosts {
		access := true
		if h.Access != nil {
			access = *h.Access
		}
		hosts = append(hosts, host.Host{Name: h.Name, Access: access})
	}
	routines := cfg.Host.Routines
	if runner == nil {
		// The sleep runner emulates every routine.
		for _, k := range action.DefaultCatalog().Kinds() {
			e, _ := action.DefaultCatalog().Lookup(k)
			routines = append(routines, e.Routine)
		}
		for _, r := range cfg.Run.Routines {
			routines = append(routines, r)
		}
	}
	inv := host.NewInventory(hosts, routines)
	inv.Runner = runner
	return inv
}

func mapRunner(cfg *Config, durs host.Durations) (host.Runner, *host.CommandRunner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Host.Runner)) {
	case "", "sleep":
		return host.SleepRunner{Durations: durs}, nil, nil
	case "command":
		timeout, err := parseDurationOrDefault("host.timeout", cfg.Host.Timeout, 0)
		if err != nil {
			return nil, nil, err
		}
		cr := &host.CommandRunner{Dir: cfg.Host.RoutineDir, Timeout: timeout}
		return cr, cr, nil
	default:
		return nil, nil, fmt.Errorf("unknown host.runner: %s", cfg.Host.Runner)
	}
}

func mapAuditConfig(cfg *Config, method string) (audit.Config, error) {
	ac := cfg.Audit
	driver := strings.ToLower(strings.TrimSpace(ac.Driver))
	path := strings.TrimSpace(ac.Path)

	switch driver {
	case "", "file":
		if path == "" {
			dir := strings.TrimSpace(ac.Dir)
			if dir == "" {
				dir = "."
			}
			path = filepath.Join(dir, strings.ToLower(method)+auditFileSuffix)
		}
		return audit.Config{Driver: "file", Path: path, Keep: ac.Keep}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return audit.Config{}, fmt.Errorf("audit.path is required when audit.driver=sqlite")
		}
		busy, err := parseDurationOrDefault("audit.busy_timeout", ac.BusyTimeout, time.Second)
		if err != nil {
			return audit.Config{}, err
		}
		return audit.Config{Driver: "sqlite", Path: path, Keep: ac.Keep, BusyTimeout: busy}, nil
	case "none":
		return audit.Config{Driver: "none"}, nil
	default:
		return audit.Config{}, fmt.Errorf("unknown audit.driver: %s", ac.Driver)
	}
}

func mapLogging(cfg *Config) logx.Config {
	lc := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
	// Debug output implies debug-level logs.
	if cfg.Run.Debug && logx.ParseLevel(lc.Level) > logx.LevelDebug {
		lc.Level = "debug"
	}
	return lc
}
