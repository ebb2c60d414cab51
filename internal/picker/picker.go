// Package picker captures a single screen position chosen by the user with
// a left click, or nothing when the user presses Escape.
package picker

import (
	"context"
	"errors"
	"image"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/keys"
)

// ErrBusy is returned when a pick is requested while another is pending.
var ErrBusy = errors.New("picker: a pick is already in progress")

// Screens returns the frames of all displays in global top-left
// coordinates.
type Screens func() []image.Rectangle

// Picker resolves pick requests from events published on a hook hub.
type Picker struct {
	hub     *hook.Hub
	screens Screens
	log     *zap.Logger

	busy    atomic.Bool
	tracker atomic.Pointer[func(image.Point)]
}

// New returns a picker reading events from hub.
func New(hub *hook.Hub, screens Screens, log *zap.Logger) *Picker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Picker{hub: hub, screens: screens, log: log.With(zap.String("component", "picker"))}
}

// SetTracker installs fn to receive pointer positions while a pick is
// pending. A nil fn removes the tracker.
func (p *Picker) SetTracker(fn func(image.Point)) {
	if fn == nil {
		p.tracker.Store(nil)
		return
	}
	p.tracker.Store(&fn)
}

// Busy reports whether a pick is pending.
func (p *Picker) Busy() bool {
	return p.busy.Load()
}

// Pick blocks until the user clicks, presses Escape or ctx is done. It
// resolves on the left button press. The global hook only observes input,
// so that click also reaches the window under the pointer; callers should
// ask the user to click somewhere harmless.
//
// Returns:
//   - image.Point: the clicked point, clamped to the union of all screens.
//   - bool: false when the pick was cancelled or no screen is attached.
//   - error: ErrBusy if another pick is pending, ctx.Err() on cancellation.
func (p *Picker) Pick(ctx context.Context) (image.Point, bool, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return image.Point{}, false, ErrBusy
	}
	defer p.busy.Store(false)

	bounds := union(p.screens())
	if bounds.Empty() {
		p.log.Warn("no screens attached, pick resolves to none")
		return image.Point{}, false, nil
	}

	events, cancel := p.hub.Subscribe(64)
	defer cancel()
	p.log.Debug("pick started", zap.Stringer("bounds", bounds))

	for {
		select {
		case <-ctx.Done():
			return image.Point{}, false, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return image.Point{}, false, nil
			}
			switch {
			case ev.Kind == hook.KeyDown && ev.Key == keys.CodeEscape:
				p.log.Debug("pick cancelled")
				return image.Point{}, false, nil
			case ev.Kind == hook.MouseDown && ev.Button == hook.ButtonLeft:
				pt := clamp(image.Pt(ev.X, ev.Y), bounds)
				p.log.Debug("pick resolved", zap.Int("x", pt.X), zap.Int("y", pt.Y))
				return pt, true, nil
			case ev.Kind == hook.MouseMove:
				if fn := p.tracker.Load(); fn != nil {
					(*fn)(clamp(image.Pt(ev.X, ev.Y), bounds))
				}
			}
		}
	}
}

func union(rects []image.Rectangle) image.Rectangle {
	var u image.Rectangle
	for _, r := range rects {
		u = u.Union(r)
	}
	return u
}

// clamp keeps pt inside r. r.Max is exclusive.
func clamp(pt image.Point, r image.Rectangle) image.Point {
	return image.Pt(
		min(max(pt.X, r.Min.X), r.Max.X-1),
		min(max(pt.Y, r.Min.Y), r.Max.Y-1),
	)
}
