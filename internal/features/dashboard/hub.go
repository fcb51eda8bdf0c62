package dashboard

import (
	"sync"

	"apex-dashboard/internal/common/models"
)

const subscriberBuffer = 64

// Hub fans change events out to subscribers. Slow subscribers lose
// events instead of blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan models.Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan models.Event)}
}

func (h *Hub) Subscribe() (<-chan models.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan models.Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
