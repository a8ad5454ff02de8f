package events

import "sync"

// Handler receives published events. Handlers run synchronously on the publisher's goroutine.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus dispatches events to per-type and catch-all subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	byType map[EventType][]subscription
	all    []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byType: make(map[EventType][]subscription)}
}

// On registers fn for one event type. The returned func removes the subscription.
func (b *Bus) On(t EventType, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.byType[t] = append(b.byType[t], subscription{id: id, fn: fn})
	return func() { b.remove(t, id) }
}

// Subscribe registers fn for every event type.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: fn})
	return func() { b.remove("", id) }
}

func (b *Bus) remove(t EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t == "" {
		b.all = without(b.all, id)
		return
	}
	b.byType[t] = without(b.byType[t], id)
}

func without(subs []subscription, id int) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish delivers e to the type's subscribers first, then to catch-all subscribers.
// Handlers may subscribe, unsubscribe or publish again; they see a snapshot of the list.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	typed := b.byType[e.Type]
	all := b.all
	b.mu.RUnlock()

	for _, s := range typed {
		s.fn(e)
	}
	for _, s := range all {
		s.fn(e)
	}
}

// PublishAll delivers a batch in order.
func (b *Bus) PublishAll(batch []Event) {
	for _, e := range batch {
		b.Publish(e)
	}
}
