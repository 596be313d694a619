package batcher

import (
	"fmt"
	"strings"
	"time"

	"instabatch/internal/action"
)

const (
	DefaultInterval   = time.Second
	DefaultLeadOffset = 100 * time.Millisecond
	DefaultMethod     = "hwgw"

	// FireWindow: a kind whose start is due within this window fires now.
	FireWindow = 8 * time.Millisecond
	// YieldThreshold: fires with more slack than this yield once first.
	YieldThreshold = 6 * time.Millisecond
	// MinSleep bounds the idle wait between ticks from below.
	MinSleep = 10 * time.Millisecond
	// WakeLead wakes the loop this long before the earliest due start.
	WakeLead = 10 * time.Millisecond
)

// Config is the immutable run configuration.
type Config struct {
	HostingHost string
	TargetHost  string
	// Method names the action order (hwgw, hgw, gw, w).
	Method string
	// MaxBatches caps the run; 0 is unbounded.
	MaxBatches int
	// Interval is the spacing between consecutive completions.
	Interval time.Duration
	// LeadOffset is the minimum delay before the first completion. Zero is
	// a valid value; callers apply DefaultLeadOffset when it is unset.
	LeadOffset time.Duration

	Catalog action.Catalog
	// LogPath is handed to dispatched routines.
	LogPath string

	Simulate bool
	Debug    bool
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Method) == "" {
		c.Method = DefaultMethod
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if len(c.Catalog.Kinds()) == 0 {
		c.Catalog = action.DefaultCatalog()
	}
	c.HostingHost = strings.TrimSpace(c.HostingHost)
	c.TargetHost = strings.TrimSpace(c.TargetHost)
	return c
}

// check validates fields that need no collaborator.
func (c Config) check() (action.Order, error) {
	if c.Interval <= 0 {
		return action.Order{}, fmt.Errorf("%w: interval must be > 0 (got %s)", ErrInvalidConfig, c.Interval)
	}
	if c.LeadOffset < 0 {
		return action.Order{}, fmt.Errorf("%w: lead offset must be >= 0", ErrInvalidConfig)
	}
	if c.MaxBatches < 0 {
		return action.Order{}, fmt.Errorf("%w: max batches must be >= 0", ErrInvalidConfig)
	}
	order, ok := action.LookupOrder(c.Method)
	if !ok {
		return action.Order{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownMethod, c.Method, strings.Join(action.OrderNames(), ", "))
	}
	return order, nil
}
