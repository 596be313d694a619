package batcher

import (
	"sort"

	"instabatch/internal/action"
	"instabatch/internal/timing"
)

// ScheduleState is the mutable state of one run.
type ScheduleState struct {
	ActionsCount int
	BatchesCount int
	ActionIndex  int
	BatchIndex   int

	// FiredOffsets counts in-flight firings per kind beyond the head.
	FiredOffsets map[action.Kind]int
	// Fired holds signatures fired but not yet confirmed at the head.
	Fired map[timing.Signature]struct{}
}

// Tracker owns ScheduleState. ActionIndex is always
// ActionsCount mod len(order); BatchIndex grows once per traversal.
type Tracker struct {
	order action.Order
	st    ScheduleState
}

func NewTracker(order action.Order) *Tracker {
	return &Tracker{
		order: order,
		st: ScheduleState{
			FiredOffsets: map[action.Kind]int{},
			Fired:        map[timing.Signature]struct{}{},
		},
	}
}

func (t *Tracker) ActionIndex() int  { return t.st.ActionIndex }
func (t *Tracker) BatchIndex() int   { return t.st.BatchIndex }
func (t *Tracker) ActionsCount() int { return t.st.ActionsCount }
func (t *Tracker) BatchesCount() int { return t.st.BatchesCount }

// Offset returns the in-flight count for kind.
func (t *Tracker) Offset(k action.Kind) int { return t.st.FiredOffsets[k] }

// Head is the signature the tracker waits for.
func (t *Tracker) Head() timing.Signature {
	return timing.Signature{
		Kind:     t.order.At(t.st.ActionIndex),
		Batch:    t.st.BatchIndex,
		Position: t.st.ActionIndex,
	}
}

// Fire records sig as in flight.
func (t *Tracker) Fire(sig timing.Signature) {
	t.st.FiredOffsets[sig.Kind]++
	t.st.Fired[sig] = struct{}{}
}

// IsFired reports whether sig is in flight.
func (t *Tracker) IsFired(sig timing.Signature) bool {
	_, ok := t.st.Fired[sig]
	return ok
}

// TryAdvance moves the head forward when its action has been fired.
func (t *Tracker) TryAdvance() bool {
	head := t.Head()
	if _, ok := t.st.Fired[head]; !ok {
		return false
	}
	delete(t.st.Fired, head)
	if t.st.FiredOffsets[head.Kind] > 0 {
		t.st.FiredOffsets[head.Kind]--
	}
	t.st.ActionsCount++
	t.st.ActionIndex = t.st.ActionsCount % t.order.Len()
	if t.st.ActionIndex == 0 {
		t.st.BatchIndex++
		t.st.BatchesCount++
	}
	return true
}

// FiredSignatures returns the in-flight signatures, sorted.
func (t *Tracker) FiredSignatures() []string {
	out := make([]string, 0, len(t.st.Fired))
	for sig := range t.st.Fired {
		out = append(out, sig.String())
	}
	sort.Strings(out)
	return out
}

// State returns a deep copy of the current state.
func (t *Tracker) State() ScheduleState {
	cp := t.st
	cp.FiredOffsets = make(map[action.Kind]int, len(t.st.FiredOffsets))
	for k, v := range t.st.FiredOffsets {
		cp.FiredOffsets[k] = v
	}
	cp.Fired = make(map[timing.Signature]struct{}, len(t.st.Fired))
	for k := range t.st.Fired {
		cp.Fired[k] = struct{}{}
	}
	return cp
}
