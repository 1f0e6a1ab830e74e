package events

import (
	"testing"
	"time"
)

func TestInProcBusFanOut(t *testing.T) {
	bus := NewInProcBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(JobEvent{Type: TypeProgress, ProjectID: "p1", Step: 3, StepCount: 10})

	for _, sub := range []*Subscription{a, b} {
		select {
		case ev := <-sub.Events():
			if ev.ProjectID != "p1" || ev.Step != 3 {
				t.Errorf("Unexpected event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("Subscriber did not receive the event")
		}
	}
}

func TestSubscriptionBuffersEarlyEvents(t *testing.T) {
	bus := NewInProcBus()
	sub := bus.Subscribe()
	defer sub.Close()

	// Events published before the subscriber reads are held in the buffer.
	for i := 0; i < 5; i++ {
		bus.Publish(JobEvent{Type: TypeProgress, ProjectID: "p1", Step: i})
	}

	for i := 0; i < 5; i++ {
		select {
		case ev := <-sub.Events():
			if ev.Step != i {
				t.Errorf("Expected step %d, got %d", i, ev.Step)
			}
		case <-time.After(time.Second):
			t.Fatalf("Missing buffered event %d", i)
		}
	}
}

func TestCloseDetachesSubscription(t *testing.T) {
	bus := NewInProcBus()
	sub := bus.Subscribe()

	sub.Close()
	sub.Close() // safe to repeat

	if _, open := <-sub.Events(); open {
		t.Error("Expected channel to be closed")
	}

	// Publishing after close must not panic.
	bus.Publish(JobEvent{Type: TypeCompleted, ProjectID: "p1"})
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewInProcBus()
	sub := bus.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		// Overflow the buffer; extra events are dropped, not queued.
		for i := 0; i < 300; i++ {
			bus.Publish(JobEvent{Type: TypeProgress, ProjectID: "p1", Step: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
