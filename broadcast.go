package lendconsole

import "sync"

// broadcast holds the current session and notifies listeners when it
// changes. New listeners receive the current value on subscription.
type broadcast struct {
	mu        sync.Mutex
	current   *Session
	listeners map[uint64]func(*Session)
	next      uint64

	// deliver serialises listener calls so no listener observes values
	// out of order.
	deliver sync.Mutex
}

func newBroadcast() *broadcast {
	return &broadcast{listeners: make(map[uint64]func(*Session))}
}

func (b *broadcast) get() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// publish replaces the current value. Listeners run synchronously, and
// only when the value differs from the previous one.
func (b *broadcast) publish(s *Session) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	if sameSession(b.current, s) {
		b.mu.Unlock()
		return
	}
	if s != nil {
		cp := *s
		s = &cp
	}
	b.current = s
	fns := make([]func(*Session), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (b *broadcast) subscribe(fn func(*Session)) func() {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	cur := b.current
	b.mu.Unlock()

	fn(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
