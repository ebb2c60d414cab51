package synth

import (
	"fmt"
	"sync"

	"github.com/tischda/macrokeys/internal/keys"
)

// EventKind names a recorded Poster call.
type EventKind string

const (
	EventMove    EventKind = "move"
	EventButton  EventKind = "button"
	EventKey     EventKind = "key"
	EventUnicode EventKind = "unicode"
)

// Event is one recorded Poster call.
type Event struct {
	Kind   EventKind
	X, Y   int
	Button Button
	Down   bool
	Clicks int
	Code   keys.Code
	Flags  keys.Flags
	Rune   rune
}

func (e Event) String() string {
	dir := "up"
	if e.Down {
		dir = "down"
	}
	switch e.Kind {
	case EventMove:
		return fmt.Sprintf("move (%d, %d)", e.X, e.Y)
	case EventButton:
		return fmt.Sprintf("%s %s (%d, %d) clicks=%d", e.Button, dir, e.X, e.Y, e.Clicks)
	case EventKey:
		name, ok := keys.Name(e.Code)
		if !ok {
			name = fmt.Sprintf("0x%02X", uint16(e.Code))
		}
		if e.Flags != 0 {
			return fmt.Sprintf("key %s %s [%s]", name, dir, e.Flags)
		}
		return fmt.Sprintf("key %s %s", name, dir)
	case EventUnicode:
		return fmt.Sprintf("char %q %s", e.Rune, dir)
	}
	return string(e.Kind)
}

// Recorder is a Poster that records events instead of posting them. An
// optional OnEvent hook sees each event as it is recorded.
type Recorder struct {
	OnEvent func(Event)

	mu     sync.Mutex
	events []Event
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) MovePointer(x, y int) error {
	r.add(Event{Kind: EventMove, X: x, Y: y})
	return nil
}

func (r *Recorder) Button(b Button, down bool, x, y, clicks int) error {
	r.add(Event{Kind: EventButton, Button: b, Down: down, X: x, Y: y, Clicks: clicks})
	return nil
}

func (r *Recorder) Key(code keys.Code, down bool, flags keys.Flags) error {
	r.add(Event{Kind: EventKey, Code: code, Down: down, Flags: flags})
	return nil
}

func (r *Recorder) Unicode(ch rune, down bool) error {
	r.add(Event{Kind: EventUnicode, Rune: ch, Down: down})
	return nil
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.OnEvent
	r.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}
