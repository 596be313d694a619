package timing

import (
	"context"
	"time"
)

// MinRetryDelay is the floor of the dispatch retry backoff.
const MinRetryDelay = 100 * time.Millisecond

// RetryDelay is the fixed backoff between failed dispatch attempts:
// a quarter of the interval, at least MinRetryDelay.
func RetryDelay(interval time.Duration) time.Duration {
	d := interval / 4
	if d < MinRetryDelay {
		d = MinRetryDelay
	}
	return d
}

// Retry repeats an operation with a fixed delay until it succeeds.
// There is no attempt limit; only ctx ends the loop early.
type Retry struct {
	Clock Clock
	Delay time.Duration

	// OnRetry, when set, is called after each failed attempt.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it returns nil. It returns the number of attempts made
// and, if ctx ended the loop, ctx's error.
func (r Retry) Do(ctx context.Context, fn func(attempt int) error) (int, error) {
	clock := r.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	delay := r.Delay
	if delay <= 0 {
		delay = MinRetryDelay
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
		if err := clock.Sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
}
