package predicate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"instabatch/internal/batcher"
	logx "instabatch/pkg/logx"
)

func TestExpression(t *testing.T) {
	snap := batcher.Snapshot{
		BatchesCount:    3,
		ActionsCount:    12,
		ActionSignature: "hack-3-0",
		FiredSignatures: []string{"weaken-3-1", "grow-3-2"},
		BatchingMethod:  "hwgw",
		TargetHost:      "n00dles",
		ActionInterval:  time.Second,
	}
	cases := []struct {
		src  string
		want bool
	}{
		{"batchesCount >= 3", true},
		{"batchesCount >= 4", false},
		{"actionsCount % 4 === 0 && batchingMethod === 'hwgw'", true},
		{"firedSignatures.length > 1", true},
		{"actionInterval > 1000", false},
		{"targetHost.startsWith('n00')", true},
		{"undefinedName > 1", false}, // runtime error is false
	}
	for _, tc := range cases {
		p, err := Expression(tc.src)
		if err != nil {
			t.Fatalf("%q: %v", tc.src, err)
		}
		if got := p(snap); got != tc.want {
			t.Fatalf("%q = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestExpressionCompileError(t *testing.T) {
	for _, src := range []string{"", "batchesCount >=", "((("} {
		if _, err := Expression(src); !errors.Is(err, batcher.ErrInvalidPredicate) {
			t.Fatalf("%q: err = %v", src, err)
		}
	}
}

func TestSchedule(t *testing.T) {
	start := time.Date(2024, 3, 1, 5, 30, 0, 0, time.UTC)
	p, at, err := Schedule("0 6 * * *", start, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC); !at.Equal(want) {
		t.Fatalf("at = %v, want %v", at, want)
	}
	if p(batcher.Snapshot{Time: start.Add(29 * time.Minute)}) {
		t.Fatal("stopped early")
	}
	if !p(batcher.Snapshot{Time: at}) {
		t.Fatal("did not stop at activation")
	}

	_, at, err = Schedule("@every 90m", start, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := start.Add(90 * time.Minute); !at.Equal(want) {
		t.Fatalf("@every at = %v, want %v", at, want)
	}

	if _, _, err := Schedule("61 * * * *", start, nil); !errors.Is(err, batcher.ErrInvalidPredicate) {
		t.Fatalf("bad spec err = %v", err)
	}
}

func TestStopFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "STOP")
	sf, err := NewStopFile(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sf.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	pred := sf.Predicate()
	if pred(batcher.Snapshot{}) {
		t.Fatal("tripped before file exists")
	}
	if err := os.WriteFile(path, []byte("stop"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for !pred(batcher.Snapshot{}) {
		if time.Now().After(deadline) {
			t.Fatal("stop file not detected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStopFileAlreadyPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "STOP")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sf, err := NewStopFile(path, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer sf.Close()
	if !sf.Tripped() {
		t.Fatal("existing stop file not tripped")
	}
}

func TestAny(t *testing.T) {
	yes := func(batcher.Snapshot) bool { return true }
	no := func(batcher.Snapshot) bool { return false }
	if Any() != nil || Any(nil, nil) != nil {
		t.Fatal("Any of nothing should be nil")
	}
	if Any(no, nil)(batcher.Snapshot{}) {
		t.Fatal("Any(no) = true")
	}
	if !Any(no, yes)(batcher.Snapshot{}) {
		t.Fatal("Any(no, yes) = false")
	}
}
