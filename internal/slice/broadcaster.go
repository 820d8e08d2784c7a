package slice

import "sync"

// Broadcaster is the data-change notification mechanism views subscribe to.
// Subscriptions are keyed by slice URI; removal is idempotent.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]func()
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]func())}
}

// Subscribe registers a change callback under the given key, replacing any
// previous registration for the same key.
func (b *Broadcaster) Subscribe(key string, notify func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[key] = notify
}

// Unsubscribe removes the registration for the key. Removing an absent key
// is a no-op.
func (b *Broadcaster) Unsubscribe(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, key)
}

// Subscribed reports whether a callback is registered for the key.
func (b *Broadcaster) Subscribed(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subscribers[key]
	return ok
}

// Broadcast invokes every registered callback. Callbacks run outside the
// lock so they may unsubscribe without deadlocking.
func (b *Broadcaster) Broadcast() {
	b.mu.Lock()
	callbacks := make([]func(), 0, len(b.subscribers))
	for _, notify := range b.subscribers {
		callbacks = append(callbacks, notify)
	}
	b.mu.Unlock()

	for _, notify := range callbacks {
		notify()
	}
}
