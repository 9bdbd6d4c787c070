// Package events fans bot lifecycle events out to in-process subscribers.
package events

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 64

// Type names a lifecycle event.
type Type string

const (
	CommandReceived  Type = "command_received"
	CommandCompleted Type = "command_completed"
	CommandFailed    Type = "command_failed"
	CommandDropped   Type = "command_dropped"

	CallbackResolved  Type = "callback_resolved"
	CallbackTimeout   Type = "callback_timeout"
	CallbackUnclaimed Type = "callback_unclaimed"

	TokenFetched Type = "token_fetched"
	BotStarted   Type = "bot_started"
	BotStopped   Type = "bot_stopped"
)

// Event is a single lifecycle notification.
type Event struct {
	Type    Type              `json:"type"`
	At      time.Time         `json:"at"`
	BotID   string            `json:"bot_id,omitempty"`
	SyncID  string            `json:"sync_id,omitempty"`
	ChatID  string            `json:"chat_id,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Hub broadcasts events to subscribers. A nil *Hub is valid and drops
// everything, so components can publish unconditionally.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Publish delivers e to every subscriber without blocking. Slow subscribers
// miss events. Reports false once the hub is closed.
func (h *Hub) Publish(e Event) bool {
	if h == nil {
		return false
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	select {
	case <-h.done:
		return false
	default:
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
	return true
}

// Subscribe registers a subscriber. The channel is closed when ctx ends,
// the returned cancel func runs, or the hub closes.
func (h *Hub) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	ch := make(chan Event, buffer)

	if h == nil {
		close(ch)
		return ch, func() {}
	}

	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
			h.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-h.done:
		}
		cancel()
	}()

	return ch, cancel
}

// Close stops the hub and closes every subscriber channel.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for id, ch := range h.subscribers {
			delete(h.subscribers, id)
			close(ch)
		}
		h.mu.Unlock()
	})
}
