// Package status serves a read-only HTTP view of a running batch.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"instabatch/internal/audit"
	"instabatch/internal/batcher"
	"instabatch/internal/eventbus"
	"instabatch/internal/host"
	logx "instabatch/pkg/logx"
)

const defaultRecent = 100

// Sources feed the endpoints. Nil fields serve empty documents.
type Sources struct {
	Snapshot func() batcher.Snapshot
	Pool     func() host.Snapshot
}

// Options tune the server.
type Options struct {
	Addr string
	// Pprof mounts net/http/pprof under /debug. Loopback addresses only
	// unless AllowInsecure is set.
	Pprof         bool
	AllowInsecure bool
}

// Server exposes:
//
//	GET /healthz  liveness
//	GET /status   latest run snapshot, last result
//	GET /history  host pool counters and history
//	GET /fired    recently fired actions (?limit=N)
//	GET /debug/*  profiles, when enabled
type Server struct {
	opts    Options
	src     Sources
	log     logx.Logger
	bus     eventbus.Bus
	started time.Time
	router  chi.Router

	mu     sync.RWMutex
	recent []audit.Record
	result *batcher.Result
}

func New(opts Options, src Sources, log logx.Logger, bus eventbus.Bus) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if strings.TrimSpace(opts.Addr) == "" {
		opts.Addr = "127.0.0.1:8089"
	}
	s := &Server{opts: opts, src: src, log: log, bus: bus, started: time.Now(), router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	r.Get("/fired", s.handleFired)
	if s.opts.Pprof {
		if !s.opts.AllowInsecure && !isLoopbackAddr(s.opts.Addr) {
			s.log.Warn("pprof disabled: non-loopback addr requires allow_insecure", logx.String("addr", s.opts.Addr))
			return
		}
		r.Mount("/debug", middleware.Profiler())
	}
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		h = addr
	}
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

// Follow consumes bus events until ctx is done.
func (s *Server) Follow(ctx context.Context) error {
	ch, unsub := s.bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.observe(ev)
		}
	}
}

func (s *Server) observe(ev eventbus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case eventbus.ActionFired:
		if rec, ok := ev.Data.(audit.Record); ok {
			s.recent = append(s.recent, rec)
			if len(s.recent) > defaultRecent {
				s.recent = s.recent[len(s.recent)-defaultRecent:]
			}
		}
	case eventbus.RunStopped:
		if res, ok := ev.Data.(batcher.Result); ok {
			s.result = &res
		}
	}
}

// Serve listens on the configured address until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("status server started", logx.String("addr", ln.Addr().String()))
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
		s.log.Info("status server stopped")
		return nil
	}
	return err
}

type statusDoc struct {
	Uptime   string           `json:"uptime"`
	Snapshot batcher.Snapshot `json:"snapshot"`
	Result   *batcher.Result  `json:"result,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	doc := statusDoc{Uptime: time.Since(s.started).Truncate(time.Second).String()}
	if s.src.Snapshot != nil {
		doc.Snapshot = s.src.Snapshot()
	}
	s.mu.RLock()
	doc.Result = s.result
	s.mu.RUnlock()
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	var snap host.Snapshot
	if s.src.Pool != nil {
		snap = s.src.Pool()
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFired(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecent
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	s.mu.RLock()
	recs := s.recent
	if len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]audit.Record, len(recs))
	copy(out, recs)
	s.mu.RUnlock()
	respondJSON(w, http.StatusOK, out)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
