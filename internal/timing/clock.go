package timing

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Clock is the monotonic time source the dispatch loop runs on.
type Clock interface {
	Now() time.Time
	// Sleep suspends for d. A non-positive d yields once.
	// It returns ctx.Err() when ctx is done first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock uses the runtime clock. time.Now carries a monotonic reading,
// so Sub between two Now values is immune to wall-clock steps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// VirtualClock advances only when slept on or advanced explicitly.
// Used by plan mode and tests to run a schedule without waiting for it.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time

	// OnSleep, when set, runs after each Sleep with the duration slept.
	OnSleep func(d time.Duration)
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.Advance(d)
	}
	if c.OnSleep != nil {
		c.OnSleep(d)
	}
	return nil
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
