package session

import (
	"sort"
	"sync"
)

// Broadcaster keeps the auth event listeners of a provider.
type Broadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(AuthEvent)
}

// Subscribe registers fn. The returned function unregisters it and may be
// called more than once.
func (b *Broadcaster) Subscribe(fn func(AuthEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]func(AuthEvent))
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
		})
	}
}

// Publish delivers ev to every listener, in subscription order, on the
// caller's goroutine. Listeners must not call Subscribe from the callback.
func (b *Broadcaster) Publish(ev AuthEvent) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(AuthEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
