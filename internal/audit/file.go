package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "instabatch/pkg/logx"
)

// fileSink writes JSON Lines. A fresh run truncates the file unless
// Config.Keep is set.
type fileSink struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func openFile(cfg Config, log logx.Logger) (Sink, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("audit.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cfg.Keep {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	log.Debug("audit file opened", logx.String("path", path), logx.Bool("keep", cfg.Keep))
	return &fileSink{log: log, path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (s *fileSink) Path() string { return s.path }

func (s *fileSink) Append(ctx context.Context, r Record) error {
	_ = ctx
	if r.Key == "" {
		r.Key = KeyExecution
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("audit file closed")
	}
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return err
	}
	// One record per fire at most every few ms; flush so the log can be tailed.
	return s.w.Flush()
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err1 := s.w.Flush()
	err2 := s.f.Close()
	s.f = nil
	if err1 != nil {
		return err1
	}
	return err2
}

type fileReader struct{ path string }

func (r fileReader) Records(ctx context.Context, runID string) ([]Record, error) {
	_ = ctx
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if runID != "" && rec.RunID != runID {
			continue
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
