// Package events carries in-process notifications from the core services
// to the presentation layer. The presentation observes these instead of
// reaching into service state.
package events

import (
	"sync"
	"time"
)

// WalletSnapshot is emitted after every successful trade execution.
// Uses string fields to avoid float precision issues when consumed by
// web/UI layers.
type WalletSnapshot struct {
	Timestamp time.Time `json:"ts"`
	Pair      string    `json:"pair"`
	Quote     string    `json:"quote"`
	Base      string    `json:"base"`
	Price     string    `json:"price,omitempty"`
}

// ChatViewUpdate signals that the chat projection changed and the view
// should be re-rendered. Size is the current view length.
type ChatViewUpdate struct {
	Timestamp time.Time `json:"ts"`
	Size      int       `json:"size"`
	Status    string    `json:"status"`
}

// Broadcaster fans out values to all subscribers via buffered channels.
// It keeps the API intentionally small so call sites can stay
// straightforward.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster[T]{
		subs:   make(map[chan T]struct{}),
		buffer: buffer,
	}
}

// Publish sends the value to all subscribers, dropping if a reader is slow.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives values until Unsubscribe is called.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
