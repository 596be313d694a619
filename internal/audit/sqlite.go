package audit

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "instabatch/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteSink keeps every run in one database; rows are keyed by run id, so
// nothing is truncated between runs.
type sqliteSink struct {
	db   *sql.DB
	log  logx.Logger
	path string
}

func openSQLite(cfg Config, log logx.Logger) (Sink, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteSink{db: db, log: log, path: path}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteSink) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteSink) Path() string { return s.path }

func (s *sqliteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteSink) Append(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.Key == "" {
		r.Key = KeyExecution
	}
	sim := 0
	if r.Simulated {
		sim = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(run_id, key, signature, kind, batch, position, fired_at, expected_finished_at,
		 expected_executed_at, expected_duration_ms, dispatch_latency_ms, drift_ms, handle, attempts, simulated)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.RunID, r.Key, r.Signature, r.Kind, r.Batch, r.Position,
		r.FiredAt.Format(time.RFC3339Nano), r.ExpectedFinishedAt.Format(time.RFC3339Nano), r.ExpectedExecutedAt.Format(time.RFC3339Nano),
		r.ExpectedDurationMS, r.DispatchLatencyMS, r.DriftMS, nullStr(r.Handle), r.Attempts, sim,
	)
	return err
}

func (s *sqliteSink) Records(ctx context.Context, runID string) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT run_id, key, signature, kind, batch, position, fired_at, expected_finished_at, expected_executed_at,
	      expected_duration_ms, dispatch_latency_ms, drift_ms, COALESCE(handle, ''), attempts, simulated
	      FROM audit`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                      Record
			fired, finished, execd string
			sim                    int
		)
		if err := rows.Scan(&r.RunID, &r.Key, &r.Signature, &r.Kind, &r.Batch, &r.Position, &fired, &finished, &execd,
			&r.ExpectedDurationMS, &r.DispatchLatencyMS, &r.DriftMS, &r.Handle, &r.Attempts, &sim); err != nil {
			return nil, err
		}
		r.FiredAt, _ = time.Parse(time.RFC3339Nano, fired)
		r.ExpectedFinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.ExpectedExecutedAt, _ = time.Parse(time.RFC3339Nano, execd)
		r.Simulated = sim != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
