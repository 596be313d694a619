package audit

import (
	"context"
	"errors"
	"strings"

	logx "instabatch/pkg/logx"
)

// Open initializes the configured sink. An empty driver means "file".
func Open(cfg Config, log logx.Logger) (Sink, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "none":
		return Discard(), nil
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}

// OpenReader opens an existing log for reading.
func OpenReader(cfg Config) (Reader, func() error, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return fileReader{path: cfg.Path}, func() error { return nil }, nil
	case "sqlite", "sqlite3":
		cfg.Keep = true
		st, err := openSQLite(cfg, logx.Nop())
		if err != nil {
			return nil, nil, err
		}
		s := st.(*sqliteSink)
		return s, s.Close, nil
	default:
		return nil, nil, errors.New("audit driver cannot be read: " + driver)
	}
}

type discardSink struct{}

// Discard returns a sink that drops every record.
func Discard() Sink { return discardSink{} }

func (discardSink) Append(context.Context, Record) error { return nil }
func (discardSink) Path() string                         { return "" }
func (discardSink) Close() error                         { return nil }
