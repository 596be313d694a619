package timing

import "time"

// DriftTolerance is how far a dispatch may exceed one interval before its
// span is treated as sustained overhead.
const DriftTolerance = 20 * time.Millisecond

// Drift accumulates extra delay observed while dispatching. It only grows:
// it models a permanent rise in dispatch overhead, not jitter.
//
// Drift has a single owner (the dispatch loop) and is not safe for
// concurrent use.
type Drift struct {
	delay time.Duration
}

// Observe folds one dispatch span into the accumulator. When the span
// exceeds interval by more than DriftTolerance, the whole span is added and
// Observe reports true.
func (d *Drift) Observe(span, interval time.Duration) bool {
	if span-DriftTolerance <= interval {
		return false
	}
	d.delay += span
	return true
}

// Value returns the accumulated delay.
func (d *Drift) Value() time.Duration { return d.delay }
