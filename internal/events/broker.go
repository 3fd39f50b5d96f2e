package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "resinbay/internal/log"
)

// Type classifies a record change.
type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

// Event is one advisory change notification for a resource record. Listeners
// use it to flag state as stale; it never carries enough to merge into an
// in-progress edit.
type Event struct {
	Type     Type      `json:"type"`
	Resource string    `json:"resource"`
	ID       uint      `json:"id"`
	Date     time.Time `json:"date"`
}

const subscriberBuffer = 16

// Broker fans change events out to per-resource subscribers. Publishing
// never blocks: a subscriber that cannot keep up loses events rather than
// stalling the mutation path, which is acceptable for advisory signals.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan Event
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[string]chan Event)}
}

// Subscribe registers a listener for one resource. The channel is closed and
// deregistered when ctx is done, so no events are delivered after a consumer
// goes away.
func (b *Broker) Subscribe(ctx context.Context, resource string) <-chan Event {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[resource] == nil {
		b.subs[resource] = make(map[string]chan Event)
	}
	b.subs[resource][id] = ch
	b.mu.Unlock()

	applog.Debug(ctx, "event subscriber registered", "resource", resource, "subscriber", id)

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if channels, ok := b.subs[resource]; ok {
			if current, ok := channels[id]; ok && current == ch {
				delete(channels, id)
				close(ch)
			}
			if len(channels) == 0 {
				delete(b.subs, resource)
			}
		}
		b.mu.Unlock()
		applog.Debug(context.Background(), "event subscriber removed", "resource", resource, "subscriber", id)
	}()

	return ch
}

// Publish delivers a change notification to every subscriber of the
// resource, dropping it for subscribers with a full buffer.
func (b *Broker) Publish(resource string, typ Type, id uint) {
	event := Event{
		Type:     typ,
		Resource: resource,
		ID:       id,
		Date:     time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for subscriber, ch := range b.subs[resource] {
		select {
		case ch <- event:
		default:
			applog.Debug(context.Background(), "event dropped for slow subscriber",
				"resource", resource, "subscriber", subscriber, "id", id)
		}
	}
}

// SubscriberCount reports active subscribers for a resource.
func (b *Broker) SubscriberCount(resource string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[resource])
}
