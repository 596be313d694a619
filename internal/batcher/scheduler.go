package batcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"instabatch/internal/action"
	"instabatch/internal/audit"
	"instabatch/internal/eventbus"
	"instabatch/internal/timing"
	logx "instabatch/pkg/logx"
)

// Scheduler runs one batching run at a time.
type Scheduler struct {
	cfg  Config
	deps Deps
	log  logx.Logger

	// overrun warnings can fire every tick; keep the log readable.
	warn *rate.Limiter

	mu      sync.RWMutex
	running bool
	last    Snapshot
}

func New(cfg Config, deps Deps) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = timing.SystemClock{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Discard()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.Nop()
	}
	if deps.Logger.IsZero() {
		deps.Logger = logx.Nop()
	}
	return &Scheduler{
		cfg:  cfg.WithDefaults(),
		deps: deps,
		log:  deps.Logger,
		warn: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

func (s *Scheduler) Config() Config { return s.cfg }

// Snapshot returns the latest published snapshot.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Validate checks everything a run needs before the first tick.
func (s *Scheduler) Validate(ctx context.Context) error {
	_, err := s.validate(ctx)
	return err
}

func (s *Scheduler) validate(ctx context.Context) (action.Order, error) {
	order, err := s.cfg.check()
	if err != nil {
		return action.Order{}, err
	}
	if s.deps.Durations == nil {
		return action.Order{}, fmt.Errorf("%w: duration source required", ErrInvalidConfig)
	}
	if !s.cfg.Simulate && s.deps.Dispatcher == nil {
		return action.Order{}, fmt.Errorf("%w: dispatcher required", ErrInvalidConfig)
	}

	if r := s.deps.Resolver; r != nil {
		if err := r.Resolve(ctx, s.cfg.HostingHost); err != nil {
			return action.Order{}, fmt.Errorf("%w: hosting host: %w", ErrInvalidHost, err)
		}
		if err := r.Resolve(ctx, s.cfg.TargetHost); err != nil {
			return action.Order{}, fmt.Errorf("%w: target host: %w", ErrInvalidHost, err)
		}
	} else if s.cfg.HostingHost == "" || s.cfg.TargetHost == "" {
		return action.Order{}, fmt.Errorf("%w: hosting and target host required", ErrInvalidHost)
	}

	for _, k := range order.Distinct() {
		e, ok := s.cfg.Catalog.Lookup(k)
		if !ok || e.Routine == "" {
			return action.Order{}, fmt.Errorf("%w: no routine registered for %s", ErrMissingRoutine, k)
		}
		if s.cfg.Simulate || s.deps.Resolver == nil {
			continue
		}
		if !s.deps.Resolver.HasRoutine(e.Routine) {
			return action.Order{}, fmt.Errorf("%w: %s (routine %q) not available on %s", ErrMissingRoutine, k, e.Routine, s.cfg.HostingHost)
		}
	}
	return order, nil
}

// run is the per-invocation loop state.
type run struct {
	id      string
	model   *timing.Model
	tracker *Tracker
	drift   timing.Drift
	kinds   []action.Kind
	fired   int
	retry   timing.Retry
	log     logx.Logger
	// last is the latest deadline among fired actions.
	last time.Time
}

// Run validates the configuration and runs until the completion predicate
// returns true, the batch cap is reached or ctx is canceled. A stop by
// predicate or cap is not an error. On cancellation the partial Result is
// returned with ctx's error.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	order, err := s.validate(ctx)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}, fmt.Errorf("%w: scheduler already running", ErrInvalidConfig)
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	clock := s.deps.Clock
	kinds := order.Distinct()
	longest := time.Duration(0)
	for _, k := range kinds {
		if d := s.deps.Durations.DurationOf(k, s.cfg.TargetHost); d > longest {
			longest = d
		}
	}
	start := clock.Now()
	model, err := timing.NewModel(order, start, s.cfg.Interval, timing.GlobalOffset(longest, s.cfg.LeadOffset))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	id := uuid.NewString()
	log := s.log.With(logx.String("run_id", id))
	r := &run{
		id:      id,
		model:   model,
		tracker: NewTracker(order),
		kinds:   kinds,
		log:     log,
	}
	r.retry = timing.Retry{
		Clock: clock,
		Delay: timing.RetryDelay(s.cfg.Interval),
		OnRetry: func(attempt int, err error) {
			if s.warn.Allow() {
				log.Warn("dispatch failed, retrying", logx.Int("attempt", attempt), logx.Err(err))
			}
		},
	}

	log.Info("run started",
		logx.String("method", order.Name()),
		logx.String("order", order.String()),
		logx.String("target", s.cfg.TargetHost),
		logx.String("hosting", s.cfg.HostingHost),
		logx.Duration("interval", s.cfg.Interval),
		logx.Duration("global_offset", model.GlobalOffset()),
		logx.Int("max_batches", s.cfg.MaxBatches),
		logx.Bool("simulate", s.cfg.Simulate),
	)
	if s.cfg.Debug {
		log.Info("run config", logx.Any("config", s.cfg), logx.String("audit", s.deps.Audit.Path()))
	}

	res := Result{RunID: r.id, AuditPath: s.deps.Audit.Path(), StartedAt: start}
	var runErr error
	for {
		snap := s.publish(r)
		if s.deps.Predicate != nil && s.deps.Predicate(snap) {
			res.StopReason = StopPredicate
			break
		}
		if s.cfg.MaxBatches > 0 && r.tracker.BatchIndex() >= s.cfg.MaxBatches {
			res.StopReason = StopBatchCap
			break
		}
		if err := s.advance(ctx, r); err != nil {
			res.StopReason = StopCanceled
			runErr = err
			break
		}
	}

	res.BatchesCount = r.tracker.BatchesCount()
	res.ActionsCount = r.tracker.ActionsCount()
	res.FiredCount = r.fired
	res.Drift = r.drift.Value()
	res.StoppedAt = clock.Now()
	res.LastCompletionAt = r.last
	s.publish(r)
	s.deps.Bus.Publish(eventbus.Event{Type: eventbus.RunStopped, Time: res.StoppedAt, Data: res})
	log.Info("run stopped",
		logx.String("reason", string(res.StopReason)),
		logx.Int("batches", res.BatchesCount),
		logx.Int("actions", res.ActionsCount),
		logx.Int("fired", res.FiredCount),
		logx.Duration("drift", res.Drift),
	)
	return res, runErr
}

// advance ticks until the head action has been fired and confirmed.
func (s *Scheduler) advance(ctx context.Context, r *run) error {
	clock := s.deps.Clock
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, mw := range s.deps.Middleware {
			mw.BeforeTick(ctx, s.snapshot(r))
		}

		earliest, pending := time.Duration(0), false
		for _, k := range r.kinds {
			dur := s.deps.Durations.DurationOf(k, s.cfg.TargetHost)
			tg, ok := r.model.TargetFor(k, r.tracker.BatchIndex(), r.tracker.ActionIndex(), r.tracker.Offset(k), r.drift.Value())
			if !ok {
				continue
			}
			if s.cfg.MaxBatches > 0 && tg.Batch >= s.cfg.MaxBatches {
				continue
			}
			mfb := timing.MustFireBy(tg.Deadline, clock.Now(), dur)
			if s.cfg.Debug {
				r.log.Debug("tick",
					logx.String("kind", string(k)),
					logx.String("target", tg.Signature().String()),
					logx.Duration("must_fire_by", mfb),
				)
			}
			if !pending || mfb < earliest {
				earliest, pending = mfb, true
			}
			if mfb >= FireWindow {
				continue
			}
			if mfb < -s.cfg.Interval && s.warn.Allow() {
				r.log.Warn("action overdue", logx.String("signature", tg.Signature().String()), logx.Duration("late", -mfb))
			}
			if err := s.fire(ctx, r, tg, dur, mfb); err != nil {
				return err
			}
		}

		before := r.tracker.BatchIndex()
		if r.tracker.TryAdvance() {
			if r.tracker.BatchIndex() != before {
				s.deps.Bus.Publish(eventbus.Event{Type: eventbus.CycleAdvanced, Time: clock.Now(), Data: s.snapshot(r)})
			}
			return nil
		}

		wait := MinSleep
		if pending && earliest-WakeLead > wait {
			wait = earliest - WakeLead
		}
		if err := clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// fire books tg, dispatches it and records the outcome. Dispatch latency
// covers this action only: the optional yield, every attempt and the retry
// waits between them.
func (s *Scheduler) fire(ctx context.Context, r *run, tg timing.Target, dur, mfb time.Duration) error {
	clock := s.deps.Clock
	sig := tg.Signature()
	r.tracker.Fire(sig)

	begin := clock.Now()
	if mfb > YieldThreshold {
		if err := clock.Sleep(ctx, 0); err != nil {
			return err
		}
	}

	entry, _ := s.cfg.Catalog.Lookup(tg.Kind)
	f := Fire{
		Signature: sig,
		Request: action.Request{
			Kind:      tg.Kind,
			Routine:   entry.Routine,
			Target:    s.cfg.TargetHost,
			Host:      s.cfg.HostingHost,
			Signature: sig.String(),
			Weight:    entry.Weight,
			LogPath:   s.deps.Audit.Path(),
		},
		Deadline:      tg.Deadline,
		ExpectedStart: tg.Deadline.Add(-dur),
		Duration:      dur,
		Simulated:     s.cfg.Simulate,
	}
	if s.cfg.LogPath != "" {
		f.Request.LogPath = s.cfg.LogPath
	}
	for _, mw := range s.deps.Middleware {
		mw.BeforeFire(ctx, f)
	}

	var err error
	if !s.cfg.Simulate {
		f.Attempts, err = r.retry.Do(ctx, func(int) error {
			h, derr := s.deps.Dispatcher.Dispatch(ctx, f.Request)
			if derr == nil {
				f.Handle = h
			}
			return derr
		})
	}
	firedAt := clock.Now()
	f.Latency = firedAt.Sub(begin)
	if r.drift.Observe(f.Latency, s.cfg.Interval) && s.warn.Allow() {
		r.log.Warn("dispatch overran interval; drift increased",
			logx.String("signature", f.Request.Signature),
			logx.Duration("span", f.Latency),
			logx.Duration("drift", r.drift.Value()),
		)
	}
	for _, mw := range s.deps.Middleware {
		mw.AfterFire(ctx, f, err)
	}
	if err != nil {
		// Only cancellation ends the retry loop.
		return err
	}
	r.fired++
	if tg.Deadline.After(r.last) {
		r.last = tg.Deadline
	}

	rec := audit.Record{
		Key:                audit.KeyExecution,
		RunID:              r.id,
		Signature:          f.Request.Signature,
		Kind:               string(tg.Kind),
		Batch:              tg.Batch,
		Position:           tg.Position,
		FiredAt:            firedAt,
		ExpectedFinishedAt: tg.Deadline,
		ExpectedExecutedAt: f.ExpectedStart,
		ExpectedDurationMS: audit.Millis(dur),
		DispatchLatencyMS:  audit.Millis(f.Latency),
		DriftMS:            audit.Millis(r.drift.Value()),
		Handle:             f.Handle,
		Attempts:           f.Attempts,
		Simulated:          f.Simulated,
	}
	if aerr := s.deps.Audit.Append(ctx, rec); aerr != nil && !errors.Is(aerr, audit.ErrDisabled) {
		r.log.Error("audit append failed", logx.String("signature", rec.Signature), logx.Err(aerr))
	}
	s.deps.Bus.Publish(eventbus.Event{Type: eventbus.ActionFired, Time: firedAt, Data: rec})
	return nil
}

func (s *Scheduler) snapshot(r *run) Snapshot {
	return Snapshot{
		RunID:           r.id,
		TargetHost:      s.cfg.TargetHost,
		HostingHost:     s.cfg.HostingHost,
		BatchingMethod:  r.model.Order().Name(),
		ActionInterval:  s.cfg.Interval,
		BatchIndex:      r.tracker.BatchIndex(),
		ActionIndex:     r.tracker.ActionIndex(),
		ActionsCount:    r.tracker.ActionsCount(),
		BatchesCount:    r.tracker.BatchesCount(),
		FiredCount:      r.fired,
		ActionSignature: r.tracker.Head().String(),
		FiredSignatures: r.tracker.FiredSignatures(),
		Drift:           r.drift.Value(),
		Time:            s.deps.Clock.Now(),
	}
}

func (s *Scheduler) publish(r *run) Snapshot {
	snap := s.snapshot(r)
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	return snap
}
