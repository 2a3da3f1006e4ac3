package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a reading lifecycle event.
type Type string

const (
	ReadStarted   Type = "read.started"
	ReadSucceeded Type = "read.succeeded"
	ReadFailed    Type = "read.failed"
)

// Event is what the live feed pushes to subscribers.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	DeviceID  string    `json:"deviceId"`
	ReadingID string    `json:"readingId,omitempty"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans reading events out to subscribers. Slow subscribers lose events
// rather than blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. The returned cancel func
// removes the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber, dropping it for any whose
// buffer is full. ID and timestamp are filled in when empty.
func (h *Hub) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the current subscription count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
