package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"instabatch/internal/action"
	"instabatch/internal/eventbus"
	logx "instabatch/pkg/logx"
)

func TestDispatchSaturatesOnWeight(t *testing.T) {
	release := make(chan struct{})
	p := New(Config{Capacity: 3}, RunnerFunc(func(ctx context.Context, req action.Request) error {
		<-release
		return nil
	}), logx.Nop(), nil)
	ctx := context.Background()
	p.Start(ctx)

	if _, err := p.Dispatch(ctx, action.Request{Kind: action.Grow, Weight: 2}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	_, err := p.Dispatch(ctx, action.Request{Kind: action.Weaken, Weight: 2})
	if !errors.Is(err, ErrSaturated) {
		t.Fatalf("expected ErrSaturated, got %v", err)
	}
	if _, err := p.Dispatch(ctx, action.Request{Kind: action.Hack, Weight: 1}); err != nil {
		t.Fatalf("unit dispatch: %v", err)
	}

	close(release)
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Drain(waitCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	snap := p.Snapshot()
	if snap.Used != 0 || snap.InFlight != 0 {
		t.Fatalf("units not released: %+v", snap)
	}
	if snap.Dispatched != 2 || snap.Saturated != 1 {
		t.Fatalf("counters: %+v", snap)
	}
	if len(snap.History) != 2 {
		t.Fatalf("history len=%d", len(snap.History))
	}
}

func TestDispatchBeforeStart(t *testing.T) {
	p := New(Config{Capacity: 1}, SleepRunner{}, logx.Nop(), nil)
	if _, err := p.Dispatch(context.Background(), action.Request{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestPanicIsRecordedAsFailure(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8)
	defer unsub()

	p := New(Config{Capacity: 1}, RunnerFunc(func(context.Context, action.Request) error {
		panic("boom")
	}), logx.Nop(), bus)
	ctx := context.Background()
	p.Start(ctx)
	h, err := p.Dispatch(ctx, action.Request{Kind: action.Hack, Signature: "hack-0-0"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.HasPrefix(h, "act-") {
		t.Fatalf("handle=%q", h)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Drain(waitCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if snap := p.Snapshot(); snap.Failed != 1 || snap.History[0].Error == "" {
		t.Fatalf("panic not recorded: %+v", snap)
	}

	var failed bool
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == eventbus.ActionFailed {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("expected %s event", eventbus.ActionFailed)
	}
}

func TestStopCancelsSleepRunner(t *testing.T) {
	durs := StaticDurations{Default: map[action.Kind]time.Duration{action.Weaken: time.Hour}}
	p := New(Config{Capacity: 1}, SleepRunner{Durations: durs}, logx.Nop(), nil)
	p.Start(context.Background())
	if _, err := p.Dispatch(context.Background(), action.Request{Kind: action.Weaken}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStaticDurations(t *testing.T) {
	d := StaticDurations{
		Default:   map[action.Kind]time.Duration{action.Hack: time.Second, action.Weaken: 4 * time.Second},
		PerTarget: map[string]map[action.Kind]time.Duration{"n00dles": {action.Hack: 500 * time.Millisecond}},
	}
	if got := d.DurationOf(action.Hack, "n00dles"); got != 500*time.Millisecond {
		t.Fatalf("per-target hack=%s", got)
	}
	if got := d.DurationOf(action.Weaken, "n00dles"); got != 4*time.Second {
		t.Fatalf("fallback weaken=%s", got)
	}
	if got := Longest(d, "n00dles", []action.Kind{action.Hack, action.Grow, action.Weaken}); got != 4*time.Second {
		t.Fatalf("longest=%s", got)
	}
}

func TestInventory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "instant_grow"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	inv := NewInventory([]Host{{Name: "home", Access: true}, {Name: "ecorp", Access: false}}, []string{"instant_hack"})
	inv.Runner = &CommandRunner{Dir: dir}

	ctx := context.Background()
	if err := inv.Resolve(ctx, "home"); err != nil {
		t.Fatalf("home: %v", err)
	}
	if err := inv.Resolve(ctx, "ecorp"); !errors.Is(err, ErrNoAccess) {
		t.Fatalf("ecorp: %v", err)
	}
	if err := inv.Resolve(ctx, "nowhere"); !errors.Is(err, ErrUnknownHost) {
		t.Fatalf("nowhere: %v", err)
	}

	for routine, want := range map[string]bool{"instant_hack": true, "instant_grow": true, "instant_weaken": false} {
		if got := inv.HasRoutine(routine); got != want {
			t.Fatalf("HasRoutine(%s)=%v want %v", routine, got, want)
		}
	}
}

func TestCommandRunnerPassesFlags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	script := "#!/bin/sh\necho \"$@\" > " + out + "\n"
	if err := os.WriteFile(filepath.Join(dir, "instant_hack"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	r := CommandRunner{Dir: dir}
	err := r.Run(context.Background(), action.Request{Routine: "instant_hack", Target: "n00dles", Host: "home", Signature: "hack-0-0", LogPath: "x.jsonl"})
	if err != nil {
		t.Skipf("shell unavailable: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "--target n00dles --host home --signature hack-0-0 --logfile x.jsonl"
	if got := strings.TrimSpace(string(b)); got != want {
		t.Fatalf("args=%q want %q", got, want)
	}
}
