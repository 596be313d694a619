package batcher

import (
	"testing"

	"instabatch/internal/action"
	"instabatch/internal/timing"
)

func TestTrackerAdvancesOnlyOnHead(t *testing.T) {
	order, _ := action.LookupOrder("gw")
	tr := NewTracker(order)

	weaken := timing.Signature{Kind: action.Weaken, Batch: 0, Position: 1}
	tr.Fire(weaken)
	if tr.TryAdvance() {
		t.Fatal("advanced without head fired")
	}
	if got := tr.Offset(action.Weaken); got != 1 {
		t.Fatalf("weaken offset = %d", got)
	}

	tr.Fire(tr.Head())
	if !tr.TryAdvance() {
		t.Fatal("head fired but not advanced")
	}
	if tr.ActionIndex() != 1 || tr.BatchIndex() != 0 || tr.Offset(action.Grow) != 0 {
		t.Fatalf("state = %+v", tr.State())
	}
	if !tr.TryAdvance() {
		t.Fatal("weaken already fired; expected advance")
	}
	if tr.ActionIndex() != 0 || tr.BatchIndex() != 1 || tr.BatchesCount() != 1 || tr.ActionsCount() != 2 {
		t.Fatalf("state = %+v", tr.State())
	}
	if len(tr.FiredSignatures()) != 0 {
		t.Fatalf("fired = %v", tr.FiredSignatures())
	}
}

func TestTrackerStateIsCopy(t *testing.T) {
	order, _ := action.LookupOrder("w")
	tr := NewTracker(order)
	tr.Fire(tr.Head())
	st := tr.State()
	delete(st.Fired, tr.Head())
	st.FiredOffsets[action.Weaken] = 9
	if !tr.IsFired(tr.Head()) || tr.Offset(action.Weaken) != 1 {
		t.Fatal("State leaked internal maps")
	}
}
