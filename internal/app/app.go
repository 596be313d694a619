package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"instabatch/internal/audit"
	"instabatch/internal/batcher"
	"instabatch/internal/eventbus"
	"instabatch/internal/host"
	"instabatch/internal/predicate"
	"instabatch/internal/runtime/supervisor"
	"instabatch/internal/status"
	"instabatch/internal/timing"
	logx "instabatch/pkg/logx"
)

// App wires one batching run: logging, audit sink, host pool, predicates,
// scheduler and the optional status server.
type App struct {
	cfg  *Config
	bcfg batcher.Config

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	sink audit.Sink

	pool   *host.Pool
	sched  *batcher.Scheduler
	stop   *predicate.StopFile
	status *status.Server
}

type options struct {
	clock      timing.Clock
	log        logx.Logger
	middleware []batcher.Middleware
}

type Option func(*options)

// WithClock replaces the system clock (plan mode, tests).
func WithClock(c timing.Clock) Option { return func(o *options) { o.clock = c } }

// WithLogger bypasses the configured logging service.
func WithLogger(l logx.Logger) Option { return func(o *options) { o.log = l } }

// WithMiddleware appends scheduler middleware.
func WithMiddleware(mw ...batcher.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

func New(cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.clock == nil {
		o.clock = timing.SystemClock{}
	}

	a := &App{cfg: cfg}
	if o.log.IsZero() {
		a.logs, a.log = logx.New(mapLogging(cfg))
	} else {
		a.log = o.log
	}
	log := a.log.With(logx.String("comp", "app"))

	bcfg, err := mapBatcherConfig(cfg)
	if err != nil {
		return nil, a.fail(err)
	}
	a.bcfg = bcfg

	durs, err := mapDurations(cfg)
	if err != nil {
		return nil, a.fail(err)
	}
	runner, cmdRunner, err := mapRunner(cfg, durs)
	if err != nil {
		return nil, a.fail(err)
	}
	inv := mapInventory(cfg, cmdRunner)

	a.bus = eventbus.New()
	a.pool = host.New(mapHostConfig(cfg), runner, a.log.With(logx.String("comp", "host")), a.bus)

	acfg, err := mapAuditConfig(cfg, bcfg.Method)
	if err != nil {
		return nil, a.fail(err)
	}
	sink, err := audit.Open(acfg, a.log.With(logx.String("comp", "audit")))
	if err != nil {
		return nil, a.fail(fmt.Errorf("open audit: %w", err))
	}
	a.sink = sink

	pred, err := a.predicates(o.clock.Now())
	if err != nil {
		return nil, a.fail(err)
	}

	a.sched = batcher.New(bcfg, batcher.Deps{
		Durations:  durs,
		Dispatcher: a.pool,
		Resolver:   inv,
		Predicate:  pred,
		Clock:      o.clock,
		Audit:      sink,
		Bus:        a.bus,
		Logger:     a.log.With(logx.String("comp", "batcher")),
		Middleware: o.middleware,
	})

	if cfg.Status.Enabled {
		a.status = status.New(status.Options{
			Addr:          cfg.Status.Addr,
			Pprof:         cfg.Status.Pprof,
			AllowInsecure: cfg.Status.AllowInsecure,
		}, status.Sources{
			Snapshot: a.sched.Snapshot,
			Pool:     a.pool.Snapshot,
		}, a.log.With(logx.String("comp", "status")), a.bus)
	}

	log.Debug("app ready",
		logx.String("method", bcfg.Method),
		logx.String("audit", sink.Path()),
		logx.Int("capacity", a.pool.Capacity()),
		logx.Bool("status", a.status != nil),
	)
	return a, nil
}

func (a *App) predicates(start time.Time) (batcher.CompletionPredicate, error) {
	sc := a.cfg.Stop
	var preds []batcher.CompletionPredicate

	if strings.TrimSpace(sc.Expression) != "" {
		p, err := predicate.Expression(sc.Expression)
		if err != nil {
			return nil, fmt.Errorf("stop.expression: %w", err)
		}
		preds = append(preds, p)
	}
	if strings.TrimSpace(sc.At) != "" {
		var loc *time.Location
		if tz := strings.TrimSpace(sc.Timezone); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				return nil, fmt.Errorf("stop.timezone: %w", err)
			}
			loc = l
		}
		p, at, err := predicate.Schedule(sc.At, start, loc)
		if err != nil {
			return nil, fmt.Errorf("stop.at: %w", err)
		}
		a.log.Info("run will stop at", logx.Time("at", at))
		preds = append(preds, p)
	}
	if strings.TrimSpace(sc.File) != "" {
		sf, err := predicate.NewStopFile(sc.File, a.log.With(logx.String("comp", "stopfile")))
		if err != nil {
			return nil, fmt.Errorf("stop.file: %w", err)
		}
		a.stop = sf
		preds = append(preds, sf.Predicate())
	}
	return predicate.Any(preds...), nil
}

// Validate checks the run without starting it.
func (a *App) Validate(ctx context.Context) error { return a.sched.Validate(ctx) }

func (a *App) BatcherConfig() batcher.Config { return a.bcfg }

func (a *App) AuditPath() string { return a.sink.Path() }

// Run executes one batching run. Dispatched actions that are still running
// when the scheduler stops are awaited unless ctx is canceled.
func (a *App) Run(ctx context.Context) (batcher.Result, error) {
	sup := NewSupervisor(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	a.pool.Start(sup.Context())

	if a.stop != nil {
		sup.Go("stopfile.watch", a.stop.Watch)
	}
	if a.status != nil {
		sup.Go("status.follow", a.status.Follow)
		sup.GoRestart("status.serve", 500*time.Millisecond, 10*time.Second, a.status.Serve)
	}

	res, err := a.sched.Run(sup.Context())

	if err == nil && !a.bcfg.Simulate {
		if snap := a.pool.Snapshot(); snap.InFlight > 0 {
			a.log.Info("waiting for in-flight actions", logx.Int("in_flight", snap.InFlight))
		}
		if derr := a.pool.Drain(ctx); derr != nil && !errors.Is(derr, context.Canceled) {
			a.log.Warn("drain interrupted", logx.Err(derr))
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if perr := a.pool.Stop(stopCtx); perr != nil {
		a.log.Warn("host pool stop", logx.Err(perr))
	}
	if serr := sup.Stop(stopCtx); serr != nil && !errors.Is(serr, context.Canceled) {
		a.log.Warn("supervisor stop", logx.Err(serr))
	}
	return res, err
}

// Close releases the audit sink and log files.
func (a *App) Close() error {
	var errs []error
	if a.stop != nil {
		errs = append(errs, a.stop.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

func (a *App) fail(err error) error {
	if a.sink != nil {
		_ = a.sink.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}
