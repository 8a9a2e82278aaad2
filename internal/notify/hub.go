// Package notify fans snapshots out to subscribers whose lifetime is bound
// to a context.
package notify

import (
	"context"
	"sync"
)

// Hub delivers the latest value of T to every live subscriber.
// A subscriber that falls behind only ever sees the most recent value.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan T
}

// NewHub returns an empty Hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a subscriber and sends it initial. The returned channel is
// closed once ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context, initial T) <-chan T {
	ch := make(chan T, 1)
	ch <- initial

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish replaces any undelivered value of each subscriber with v.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
