// Package gohook feeds a hook.Hub from the libuiohook global event hook.
package gohook

import (
	"context"
	"time"

	gohook "github.com/robotn/gohook"
	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/keys"
)

// libuiohook modifier mask bits.
const (
	maskShiftL = 1 << 0
	maskCtrlL  = 1 << 1
	maskMetaL  = 1 << 2
	maskAltL   = 1 << 3
	maskShiftR = 1 << 4
	maskCtrlR  = 1 << 5
	maskMetaR  = 1 << 6
	maskAltR   = 1 << 7
)

// libuiohook mouse buttons.
const (
	button1 = 1
	button2 = 2
	button3 = 3
)

// heldTimeout bounds how long a key counts as held without a repeat. It is
// longer than the slowest auto-repeat delay the platforms allow.
const heldTimeout = 2 * time.Second

// heldKey is the last press seen for a key that has not been released.
type heldKey struct {
	mask uint16
	last time.Time
}

// Run starts the global hook and publishes translated events to hub until
// ctx is done. Only one Run may be active per process.
func Run(ctx context.Context, hub *hook.Hub, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "gohook"))

	evChan := gohook.Start()
	defer gohook.End()
	log.Info("global input hook started")

	held := map[uint16]heldKey{}
	for {
		select {
		case <-ctx.Done():
			log.Info("global input hook stopped")
			return nil
		case ev, ok := <-evChan:
			if !ok {
				return nil
			}
			out, ok := translate(ev, held)
			if !ok {
				continue
			}
			hub.Publish(out)
		}
	}
}

// translate converts a gohook event. gohook reports key presses as KeyHold
// (repeated while held) and mouse presses as MouseHold; held suppresses
// auto-repeat so a held key yields one KeyDown. A KeyHold with a different
// modifier mask, or one arriving after heldTimeout of silence, counts as a
// new press so a missed KeyUp cannot mute the key.
func translate(ev gohook.Event, held map[uint16]heldKey) (hook.Event, bool) {
	out := hook.Event{When: ev.When, X: int(ev.X), Y: int(ev.Y)}
	switch ev.Kind {
	case gohook.KeyHold:
		prev, ok := held[ev.Keycode]
		held[ev.Keycode] = heldKey{mask: ev.Mask, last: ev.When}
		if ok && prev.mask == ev.Mask && ev.When.Sub(prev.last) < heldTimeout {
			return out, false
		}
		out.Kind = hook.KeyDown
	case gohook.KeyUp:
		delete(held, ev.Keycode)
		out.Kind = hook.KeyUp
	case gohook.MouseHold:
		out.Kind = hook.MouseDown
	case gohook.MouseDown:
		out.Kind = hook.MouseUp
	case gohook.MouseMove, gohook.MouseDrag:
		out.Kind = hook.MouseMove
	default:
		return out, false
	}

	switch out.Kind {
	case hook.KeyDown, hook.KeyUp:
		code, ok := vcToCode[ev.Keycode]
		if !ok {
			return out, false
		}
		out.Key = code
		out.Mods = maskFlags(ev.Mask)
	case hook.MouseDown, hook.MouseUp:
		out.Button = mouseButton(ev.Button)
	}
	return out, true
}

func maskFlags(mask uint16) keys.Flags {
	var f keys.Flags
	if mask&(maskShiftL|maskShiftR) != 0 {
		f |= keys.ModShift
	}
	if mask&(maskCtrlL|maskCtrlR) != 0 {
		f |= keys.ModCtrl
	}
	if mask&(maskMetaL|maskMetaR) != 0 {
		f |= keys.ModSuper
	}
	if mask&(maskAltL|maskAltR) != 0 {
		f |= keys.ModAlt
	}
	return f
}

func mouseButton(b uint16) hook.Button {
	switch b {
	case button1:
		return hook.ButtonLeft
	case button2:
		return hook.ButtonRight
	case button3:
		return hook.ButtonMiddle
	}
	return hook.ButtonNone
}
