package hotkey

import (
	"context"

	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/keys"
)

// HubListener reports every non-modifier key-down published on a hook hub
// together with the modifiers held at that moment.
type HubListener struct {
	hub *hook.Hub
}

// NewHubListener returns a listener reading from hub.
func NewHubListener(hub *hook.Hub) *HubListener {
	return &HubListener{hub: hub}
}

// Listen blocks until ctx is done.
func (l *HubListener) Listen(ctx context.Context, fire func(Binding)) error {
	events, cancel := l.hub.Subscribe(64)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind != hook.KeyDown || isModifierCode(ev.Key) {
				continue
			}
			fire(Binding{Key: ev.Key, Modifiers: ev.Mods})
		}
	}
}

// Update is a no-op; the dispatcher matches key-downs itself.
func (l *HubListener) Update([]Binding) error {
	return nil
}

func isModifierCode(c keys.Code) bool {
	switch c {
	case keys.CodeShift, keys.CodeControl, keys.CodeAlt, keys.CodeCommand:
		return true
	}
	return false
}
