// Package bus implements the single named publish channel spec §4.6 calls
// the Event Bus: one producer (Stream Sessions), many consumers (UI
// subscribers, typically one SSE connection each). Grounded on the teacher's
// internal/server/channel.go subscriber-map pattern, generalized from a
// single hardcoded channel name to a typed Bus value so test_connection can
// use a distinct instance from the main "llm-stream" bus (spec §9 open
// question).
package bus

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/deskllm/gateway/internal/catalog"
)

// subscriberBuffer mirrors the teacher's channel.go buffer size of 64.
const subscriberBuffer = 64

// Bus is a single-producer-multiple-consumer fan-out of catalog.Event
// values. The zero value is not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan catalog.Event
}

// New returns an empty Bus ready for Subscribe and Publish.
func New() *Bus {
	return &Bus{subscribers: make(map[string]chan catalog.Event)}
}

// Subscribe registers a new consumer and returns its handle (for
// Unsubscribe) and a receive-only channel of events. The returned channel
// is buffered; a consumer that falls behind has events silently dropped for
// it rather than blocking the publisher (spec's back-pressure design note:
// the UI is the only consumer and is faster than the network).
func (b *Bus) Subscribe() (string, <-chan catalog.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ulid.Make().String()
	ch := make(chan catalog.Event, subscriberBuffer)
	b.subscribers[key] = ch
	return key, ch
}

// Unsubscribe removes one or more subscriber handles. Unknown handles are
// ignored.
func (b *Bus) Unsubscribe(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		if ch, ok := b.subscribers[k]; ok {
			delete(b.subscribers, k)
			close(ch)
		}
	}
}

// Publish fans ev out to every current subscriber. A subscriber whose
// buffer is full has this event dropped for it; the subscriber itself is
// not torn down (unlike the teacher's broadcastMessage, which evicts slow
// clients entirely — here a full buffer just means a momentarily slow SSE
// write, not a dead client, so eviction would be too aggressive).
func (b *Bus) Publish(ev catalog.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports the current number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
