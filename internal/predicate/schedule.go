package predicate

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"instabatch/internal/batcher"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule stops a run at the first activation of spec after start, e.g.
// "0 6 * * *" (next 06:00) or "@every 2h". loc defaults to time.Local.
func Schedule(spec string, start time.Time, loc *time.Location) (batcher.CompletionPredicate, time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty schedule", batcher.ErrInvalidPredicate)
	}
	if loc != nil && !strings.HasPrefix(spec, "@") && !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=" + loc.String() + " " + spec
	}
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: schedule %q: %w", batcher.ErrInvalidPredicate, spec, err)
	}
	at := sched.Next(start)
	if at.IsZero() {
		return nil, time.Time{}, fmt.Errorf("%w: schedule %q never fires", batcher.ErrInvalidPredicate, spec)
	}
	return func(s batcher.Snapshot) bool {
		return !s.Time.Before(at)
	}, at, nil
}
