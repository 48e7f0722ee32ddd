// Package cartsync provides the in-process invalidation channel that keeps
// independently-mounted cart views consistent. Messages carry no payload:
// every subscriber refetches a full snapshot, which keeps delivery order
// irrelevant and refreshes idempotent.
package cartsync

import "sync"

// Handler is invoked synchronously on every publish.
type Handler func()

// Bus is a single named broadcast channel. Mutation sites publish after the
// backend has acknowledged their write; subscribers refetch.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]Handler
	nextID int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing is safe to call more than once.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish invokes every subscribed handler synchronously.
// Handlers run outside the bus lock so they may subscribe or publish
// themselves without deadlocking.
func (b *Bus) Publish() {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.subs))
	for _, fn := range b.subs {
		snapshot = append(snapshot, fn)
	}
	b.mu.RUnlock()

	for _, fn := range snapshot {
		fn()
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
