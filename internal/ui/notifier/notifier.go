// Package notifier fans dashboard events out to the open SSE streams.
package notifier

import "sync"

// Topic names what changed.
type Topic string

// Topics published by the server.
const (
	// CatalogReloaded means the entry lists must be re-rendered.
	CatalogReloaded Topic = "catalog"
	// RunCompleted means the recent-runs panel is stale.
	RunCompleted Topic = "run"
)

// Event is one notification.
type Event struct {
	Topic Topic
	// Entry is the catalog entry a RunCompleted event refers to.
	Entry string
}

// Notifier broadcasts events to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Event {
	// Room for one event of each topic.
	ch := make(chan Event, 2)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends ev to all listeners without blocking. A listener whose
// buffer is full misses the event and catches up on the next one.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Listeners returns the number of open subscriptions.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
