package timing

import (
	"fmt"
	"time"

	"instabatch/internal/action"
)

// SafetyMargin is added on top of the largest action duration so the first
// completion is reachable by every kind.
const SafetyMargin = 100 * time.Millisecond

// Model maps (batch, position) pairs to completion deadlines for one run.
type Model struct {
	start        time.Time
	interval     time.Duration
	globalOffset time.Duration

	order action.Order
	index action.IndexMap
}

// Target is the slot a kind would occupy if fired now.
type Target struct {
	Kind     action.Kind
	Batch    int
	Position int
	Slots    int // action slots ahead of the current head
	Deadline time.Time
}

// Signature returns the target's signature.
func (t Target) Signature() Signature {
	return Signature{Kind: t.Kind, Batch: t.Batch, Position: t.Position}
}

func NewModel(order action.Order, start time.Time, interval, globalOffset time.Duration) (*Model, error) {
	if order.IsZero() {
		return nil, fmt.Errorf("timing: empty order")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("timing: interval must be > 0")
	}
	if globalOffset < 0 {
		return nil, fmt.Errorf("timing: global offset must be >= 0")
	}
	return &Model{
		start:        start,
		interval:     interval,
		globalOffset: globalOffset,
		order:        order,
		index:        order.IndexMap(),
	}, nil
}

func (m *Model) Start() time.Time              { return m.start }
func (m *Model) Interval() time.Duration       { return m.interval }
func (m *Model) GlobalOffset() time.Duration   { return m.globalOffset }
func (m *Model) Order() action.Order           { return m.order }
func (m *Model) Positions(k action.Kind) []int { return m.index[k] }

// Deadline is the planned completion of (batch, position).
func (m *Model) Deadline(batch, position int, drift time.Duration) time.Time {
	slot := int64(batch)*int64(m.order.Len()) + int64(position)
	return m.start.Add(time.Duration(slot)*m.interval + m.globalOffset + drift)
}

// SlotsAhead returns how many action slots past actionIndex the next free
// occurrence of kind sits, given that fired occurrences of kind are already
// in flight beyond the head.
//
// Occurrences are consumed in ascending position order within a batch and
// wrap to the next batch once exhausted; fired counts rotate over a kind's
// occurrences so none of them is booked twice. ok is false when kind is not
// part of the order.
func (m *Model) SlotsAhead(kind action.Kind, actionIndex, fired int) (slots int, ok bool) {
	positions := m.index[kind]
	occ := len(positions)
	if occ == 0 {
		return 0, false
	}
	if fired < 0 {
		fired = 0
	}

	// First occurrence at or after the head; none left means the next batch.
	first, wrapped := 0, 1
	for i, p := range positions {
		if p >= actionIndex {
			first, wrapped = i, 0
			break
		}
	}

	adjusted := first + fired
	batches := wrapped + adjusted/occ
	return batches*m.order.Len() + positions[adjusted%occ] - actionIndex, true
}

// TargetFor resolves the slot kind would fill if fired now, with the head at
// (batch, actionIndex).
//
// Dispatch order differs from completion order when durations differ, so the
// target is re-derived from its absolute deadline: slots ahead become a
// deadline, and the deadline is decomposed back into batch and position by
// truncating toward the lattice.
func (m *Model) TargetFor(kind action.Kind, batch, actionIndex, fired int, drift time.Duration) (Target, bool) {
	slots, ok := m.SlotsAhead(kind, actionIndex, fired)
	if !ok {
		return Target{}, false
	}
	deadline := m.Deadline(batch, actionIndex, drift).Add(time.Duration(slots) * m.interval)

	sinceStart := deadline.Sub(m.start) - m.globalOffset - drift
	abs := int(sinceStart / m.interval)
	n := m.order.Len()

	return Target{
		Kind:     kind,
		Batch:    abs / n,
		Position: abs % n,
		Slots:    slots,
		Deadline: deadline,
	}, true
}

// MustFireBy is the time left before an action of the given duration has to
// start to complete at deadline. Negative values mean the start is overdue.
func MustFireBy(deadline, now time.Time, duration time.Duration) time.Duration {
	return deadline.Sub(now) - duration
}

// GlobalOffset returns max(longest, lead) + SafetyMargin, rounded up to the
// millisecond.
func GlobalOffset(longest, lead time.Duration) time.Duration {
	d := longest
	if lead > d {
		d = lead
	}
	d += SafetyMargin
	if rem := d % time.Millisecond; rem != 0 {
		d += time.Millisecond - rem
	}
	return d
}
