package host

import (
	"time"

	"instabatch/internal/action"
)

// StaticDurations is a fixed duration table, optionally overridden per target.
type StaticDurations struct {
	Default   map[action.Kind]time.Duration
	PerTarget map[string]map[action.Kind]time.Duration
}

func (s StaticDurations) DurationOf(kind action.Kind, target string) time.Duration {
	if m, ok := s.PerTarget[target]; ok {
		if d, ok := m[kind]; ok {
			return d
		}
	}
	return s.Default[kind]
}

// Longest returns the largest duration among kinds for target.
func Longest(d Durations, target string, kinds []action.Kind) time.Duration {
	var longest time.Duration
	for _, k := range kinds {
		if v := d.DurationOf(k, target); v > longest {
			longest = v
		}
	}
	return longest
}
