// Package hook fans out global keyboard and mouse events to subscribers.
// Only one OS hook may run per process, so a single feed publishes into a
// Hub and the hotkey listener and position picker each subscribe to it.
package hook

import (
	"sync"
	"time"

	"github.com/tischda/macrokeys/internal/keys"
)

// Kind is the type of an input event.
type Kind int

const (
	KeyDown Kind = iota + 1
	KeyUp
	MouseDown
	MouseUp
	MouseMove
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "KeyDown"
	case KeyUp:
		return "KeyUp"
	case MouseDown:
		return "MouseDown"
	case MouseUp:
		return "MouseUp"
	case MouseMove:
		return "MouseMove"
	}
	return "Unknown"
}

// Button identifies a mouse button.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// Event is a platform neutral input event. X and Y are global screen
// coordinates with a top-left origin.
type Event struct {
	Kind   Kind
	Key    keys.Code
	Mods   keys.Flags
	Button Button
	X, Y   int
	When   time.Time
}

// Hub broadcasts published events to every subscriber without blocking the
// publisher. A subscriber whose buffer is full misses events.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Publish delivers ev to all subscribers.
func (h *Hub) Publish(ev Event) {
	if ev.When.IsZero() {
		ev.When = time.Now()
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

// Subscribe returns a channel of events and a cancel func that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
