package eventbus

import (
	"testing"
	"time"
)

func TestPublishFansOutAndDrops(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(4)
	defer unsubC()

	b.Publish(Event{Type: ActionFired, Data: 1})
	b.Publish(Event{Type: ActionFired, Data: 2}) // dropped for a (buffer 1)

	if e := <-a; e.Data != 1 || e.Time.IsZero() {
		t.Fatalf("unexpected event for a: %+v", e)
	}
	select {
	case e := <-a:
		t.Fatalf("expected drop, got %+v", e)
	default:
	}
	if len(c) != 2 {
		t.Fatalf("c buffered %d events, want 2", len(c))
	}

	unsubA()
	unsubA()
	if _, ok := <-a; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	b.Publish(Event{Type: RunStopped, Time: time.Now()})
}
