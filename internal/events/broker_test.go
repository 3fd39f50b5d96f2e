package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx, "bottle")
	broker.Publish("bottle", Updated, 7)

	select {
	case event := <-ch:
		if event.Type != Updated || event.Resource != "bottle" || event.ID != 7 {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.Date.IsZero() {
			t.Fatal("event date must be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishIsScopedPerResource(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bottles := broker.Subscribe(ctx, "bottle")
	broker.Publish("resin", Created, 1)

	select {
	case event := <-bottles:
		t.Fatalf("bottle subscriber received resin event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberRemovedOnContextDone(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx, "bottle")
	if got := broker.SubscriberCount("bottle"); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	cancel()

	deadline := time.After(time.Second)
	for broker.SubscriberCount("bottle") != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber was not removed after context cancellation")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Channel must be closed so consumers terminate instead of leaking.
	if _, open := <-ch; open {
		t.Fatal("expected subscriber channel to be closed")
	}

	// Publishing after removal must not panic or deliver.
	broker.Publish("bottle", Deleted, 3)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker.Subscribe(ctx, "bottle")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			broker.Publish("bottle", Updated, uint(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestStaleTrackerFlagsUpdatesAndDeletes(t *testing.T) {
	t.Parallel()

	broker := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := TrackStaleness(ctx, broker, "bottle")

	broker.Publish("bottle", Created, 1)
	broker.Publish("bottle", Updated, 2)
	broker.Publish("bottle", Deleted, 3)

	waitFor := func(id uint) bool {
		deadline := time.After(time.Second)
		for {
			if tracker.IsStale(id) {
				return true
			}
			select {
			case <-deadline:
				return false
			case <-time.After(5 * time.Millisecond):
			}
		}
	}

	if !waitFor(2) || !waitFor(3) {
		t.Fatal("expected updated and deleted records to be flagged stale")
	}
	if tracker.IsStale(1) {
		t.Fatal("created records must not be flagged stale")
	}

	tracker.Acknowledge(2)
	if tracker.IsStale(2) {
		t.Fatal("Acknowledge must clear the stale flag")
	}
}
