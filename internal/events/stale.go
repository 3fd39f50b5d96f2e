package events

import (
	"context"
	"sync"
)

// StaleTracker watches a resource's change feed and marks records stale.
// The flag is advisory: an edit buffer stays authoritative until saved, the
// tracker only lets the surface warn that the server copy moved underneath.
type StaleTracker struct {
	mu    sync.RWMutex
	stale map[uint]bool
}

// TrackStaleness subscribes a new tracker to the resource's events. The
// tracker stops consuming when ctx is done.
func TrackStaleness(ctx context.Context, broker *Broker, resource string) *StaleTracker {
	tracker := &StaleTracker{stale: make(map[uint]bool)}
	ch := broker.Subscribe(ctx, resource)

	go func() {
		for event := range ch {
			if event.Type == Created {
				continue
			}
			tracker.mark(event.ID)
		}
	}()

	return tracker
}

func (t *StaleTracker) mark(id uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stale[id] = true
}

// IsStale reports whether the record changed since tracking began or since
// the last Acknowledge.
func (t *StaleTracker) IsStale(id uint) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stale[id]
}

// Acknowledge clears the flag, typically after the user reloads or saves.
func (t *StaleTracker) Acknowledge(id uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stale, id)
}
