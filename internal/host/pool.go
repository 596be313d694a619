package host

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"instabatch/internal/action"
	"instabatch/internal/eventbus"
	rtsup "instabatch/internal/runtime/supervisor"
	logx "instabatch/pkg/logx"
)

// Pool is a capacity-limited local executor.
type Pool struct {
	cfg    Config
	runner Runner
	log    logx.Logger
	bus    eventbus.Bus

	mu  sync.Mutex
	sup *rtsup.Supervisor

	used     atomic.Int64
	inFlight atomic.Int32

	idSeq      uint64
	dispatched atomic.Uint64
	saturated  atomic.Uint64
	failed     atomic.Uint64

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, runner Runner, log logx.Logger, bus eventbus.Bus) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 200
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Pool{cfg: cfg, runner: runner, log: log, bus: bus}
}

// Capacity returns the configured number of execution units.
func (p *Pool) Capacity() int { return p.cfg.Capacity }

// Start is idempotent. Actions run under a supervisor derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sup != nil {
		return
	}
	p.sup = rtsup.New(ctx, rtsup.WithLogger(p.log))
	p.log.Info("host pool started", logx.Int("capacity", p.cfg.Capacity))
}

// Dispatch starts req asynchronously and returns its handle. It never waits
// for the action itself; ErrSaturated means not enough units are free now.
func (p *Pool) Dispatch(ctx context.Context, req action.Request) (string, error) {
	_ = ctx
	p.mu.Lock()
	sup := p.sup
	p.mu.Unlock()
	if sup == nil || sup.Context().Err() != nil {
		return "", ErrStopped
	}
	if p.runner == nil {
		return "", fmt.Errorf("host pool has no runner")
	}

	w := int64(req.Weight)
	if w <= 0 {
		w = 1
	}
	if !p.tryAcquire(w) {
		p.saturated.Add(1)
		return "", fmt.Errorf("%w: need %d of %d units (%d in use)", ErrSaturated, w, p.cfg.Capacity, p.used.Load())
	}

	now := time.Now()
	handle := p.newHandle(now)
	p.dispatched.Add(1)
	p.inFlight.Add(1)

	sup.Go0("action."+handle, func(c context.Context) {
		defer p.used.Add(-w)
		defer p.inFlight.Add(-1)
		p.exec(c, handle, now, req)
	})
	return handle, nil
}

func (p *Pool) exec(ctx context.Context, handle string, start time.Time, req action.Request) {
	p.bus.Publish(eventbus.Event{Type: eventbus.ActionStarted, Time: start, Data: ActionEvent{Handle: handle, Signature: req.Signature, Kind: string(req.Kind), Started: start}})

	var err error
	func() {
		// One bad routine must not take the pool down.
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				p.log.Error("action.panic", logx.String("handle", handle), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		err = p.runner.Run(ctx, req)
	}()

	dur := time.Since(start)
	item := HistoryItem{Handle: handle, Signature: req.Signature, Kind: string(req.Kind), Weight: req.Weight, Started: start, Duration: dur}
	ev := ActionEvent{Handle: handle, Signature: req.Signature, Kind: string(req.Kind), Started: start, Duration: dur}
	if err != nil {
		p.failed.Add(1)
		item.Error = err.Error()
		ev.Error = item.Error
		p.log.Warn("action.failed", logx.String("handle", handle), logx.String("signature", req.Signature), logx.Duration("dur", dur), logx.Err(err))
		p.bus.Publish(eventbus.Event{Type: eventbus.ActionFailed, Data: ev})
	} else {
		p.log.Debug("action.finished", logx.String("handle", handle), logx.String("signature", req.Signature), logx.Duration("dur", dur))
		p.bus.Publish(eventbus.Event{Type: eventbus.ActionFinished, Data: ev})
	}

	p.hmu.Lock()
	p.history = append(p.history, item)
	if len(p.history) > p.cfg.HistorySize {
		p.history = p.history[len(p.history)-p.cfg.HistorySize:]
	}
	p.hmu.Unlock()
}

func (p *Pool) tryAcquire(w int64) bool {
	limit := int64(p.cfg.Capacity)
	for {
		cur := p.used.Load()
		if cur+w > limit {
			return false
		}
		if p.used.CompareAndSwap(cur, cur+w) {
			return true
		}
	}
}

// Drain waits for in-flight actions to finish (or ctx to end).
func (p *Pool) Drain(ctx context.Context) error {
	p.mu.Lock()
	sup := p.sup
	p.mu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Wait(ctx)
}

// Stop cancels in-flight actions and waits for them to return.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	sup := p.sup
	p.mu.Unlock()
	if sup == nil {
		return nil
	}
	start := time.Now()
	err := sup.Stop(ctx)
	p.log.Info("host pool stopped", logx.Duration("took", time.Since(start)))
	return err
}

func (p *Pool) Snapshot() Snapshot {
	p.hmu.Lock()
	h := make([]HistoryItem, len(p.history))
	copy(h, p.history)
	p.hmu.Unlock()

	return Snapshot{
		Capacity:   p.cfg.Capacity,
		Used:       int(p.used.Load()),
		InFlight:   int(p.inFlight.Load()),
		Dispatched: p.dispatched.Load(),
		Saturated:  p.saturated.Load(),
		Failed:     p.failed.Load(),
		History:    h,
	}
}

func (p *Pool) newHandle(now time.Time) string {
	seq := atomic.AddUint64(&p.idSeq, 1)
	return strings.ToLower(fmt.Sprintf("act-%x-%x", now.UnixNano(), seq))
}
