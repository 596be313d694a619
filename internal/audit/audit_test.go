package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "instabatch/pkg/logx"
)

func sampleRecord(runID, sig string, batch int) Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Record{
		RunID:              runID,
		Signature:          sig,
		Kind:               "weaken",
		Batch:              batch,
		Position:           1,
		FiredAt:            now,
		ExpectedFinishedAt: now.Add(4 * time.Second),
		ExpectedExecutedAt: now,
		ExpectedDurationMS: 4000,
		DispatchLatencyMS:  3,
		Handle:             "act-1",
		Attempts:           1,
	}
}

func TestFileSinkTruncatesAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hwgw_method_batcher_log.jsonl")
	ctx := context.Background()

	for run := 0; run < 2; run++ {
		sink, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if sink.Path() != path {
			t.Fatalf("Path = %q, want %q", sink.Path(), path)
		}
		if err := sink.Append(ctx, sampleRecord("run", "weaken-0-1", 0)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := sink.Append(ctx, sampleRecord("run", "weaken-0-3", 0)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	rd, closeFn, err := OpenReader(Config{Driver: "file", Path: path})
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer closeFn()
	recs, err := rd.Records(ctx, "")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after truncating reopen, got %d", len(recs))
	}
	if recs[0].Key != KeyExecution || recs[1].Signature != "weaken-0-3" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestFileSinkKeepAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	ctx := context.Background()
	for run := 0; run < 2; run++ {
		sink, err := Open(Config{Path: path, Keep: true}, logx.Logger{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		_ = sink.Append(ctx, sampleRecord("r"+string(rune('a'+run)), "grow-0-0", 0))
		_ = sink.Close()
	}
	rd, _, _ := OpenReader(Config{Path: path})
	recs, err := rd.Records(ctx, "rb")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 || recs[0].RunID != "rb" {
		t.Fatalf("expected one record for run rb, got %+v", recs)
	}
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	sink, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := sampleRecord("run-1", "hack-2-0", 2)
	want.Simulated = true
	if err := sink.Append(ctx, want); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := sink.Append(ctx, sampleRecord("run-2", "hack-0-0", 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_ = sink.Close()

	rd, closeFn, err := OpenReader(Config{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer closeFn()
	recs, err := rd.Records(ctx, "run-1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	got := recs[0]
	if got.Signature != want.Signature || got.Batch != 2 || !got.Simulated || got.Key != KeyExecution {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.ExpectedFinishedAt.Equal(want.ExpectedFinishedAt) {
		t.Fatalf("ExpectedFinishedAt = %v, want %v", got.ExpectedFinishedAt, want.ExpectedFinishedAt)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "kafka"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	s, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil || s.Path() != "" {
		t.Fatalf("none driver: sink=%v err=%v", s, err)
	}
}
