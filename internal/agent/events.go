package agent

import (
	"sync"

	"github.com/nyzhi-com/nyzhi/internal/event"
)

// defaultSubscriberBuffer bounds each subscriber's pending events.
const defaultSubscriberBuffer = 256

// Broadcaster fans an agent's event stream out to subscribers. Emit never
// blocks: a subscriber that falls behind loses events and its lag counter
// grows. Each subscriber observes the events it does receive in order.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	ch      chan event.Event
	dropped int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]*subscriber)}
}

// Subscribe registers a consumer. The returned cancel closes the channel
// and releases the slot.
func (b *Broadcaster) Subscribe() (<-chan event.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	sub := &subscriber{ch: make(chan event.Event, defaultSubscriberBuffer)}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Emit delivers an event to every subscriber without blocking.
func (b *Broadcaster) Emit(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped++
		}
	}
}

// Dropped reports the total events lost to slow subscribers.
func (b *Broadcaster) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, sub := range b.subs {
		total += sub.dropped
	}
	return total
}

var _ event.Sink = (*Broadcaster)(nil)
