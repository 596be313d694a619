package config

import (
	"fmt"
	"strings"
	"time"

	"instabatch/internal/action"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ParseDurationMap parses a kind -> duration table.
func ParseDurationMap(path string, raw map[string]string) (map[action.Kind]time.Duration, error) {
	out := make(map[action.Kind]time.Duration, len(raw))
	for k, v := range raw {
		kind, err := action.ParseKind(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d, err := ParseDurationField(path+"."+k, v)
		if err != nil {
			return nil, err
		}
		out[kind] = d
	}
	return out, nil
}
