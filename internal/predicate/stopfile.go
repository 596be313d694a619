package predicate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"instabatch/internal/batcher"
	logx "instabatch/pkg/logx"
)

// StopFile trips once path exists. It watches the parent directory, since
// the file itself usually does not exist yet.
type StopFile struct {
	path    string
	log     logx.Logger
	tripped atomic.Bool
	w       *fsnotify.Watcher
}

func NewStopFile(path string, log logx.Logger) (*StopFile, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty stop file path", batcher.ErrInvalidPredicate)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	sf := &StopFile{path: abs, log: log, w: w}
	if _, err := os.Stat(abs); err == nil {
		sf.tripped.Store(true)
	}
	return sf, nil
}

func (s *StopFile) Path() string { return s.path }

// Tripped reports whether the stop file has been seen.
func (s *StopFile) Tripped() bool { return s.tripped.Load() }

// Predicate returns the stop file as a completion predicate.
func (s *StopFile) Predicate() batcher.CompletionPredicate {
	return func(batcher.Snapshot) bool { return s.Tripped() }
}

// Watch consumes watcher events until ctx is done; run it in its own
// goroutine. The watcher is closed on return.
func (s *StopFile) Watch(ctx context.Context) error {
	defer s.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				if _, err := os.Stat(s.path); err == nil && !s.tripped.Swap(true) {
					s.log.Info("stop file detected", logx.String("path", s.path))
				}
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("stop file watcher error", logx.Err(err))
		}
	}
}

// Close releases the watcher when Watch was never started.
func (s *StopFile) Close() error { return s.w.Close() }
