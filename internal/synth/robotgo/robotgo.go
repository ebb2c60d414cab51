// Package robotgo posts input events with go-vgo/robotgo.
package robotgo

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/tischda/macrokeys/internal/keys"
	"github.com/tischda/macrokeys/internal/synth"
)

// Poster implements synth.Poster on top of robotgo.
type Poster struct{}

// New returns a robotgo poster.
func New() *Poster {
	return &Poster{}
}

var _ synth.Poster = (*Poster)(nil)

func (p *Poster) MovePointer(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

// Button toggles a mouse button at the current pointer position. robotgo
// has no click count field, so the OS derives double clicks from timing.
func (p *Poster) Button(b synth.Button, down bool, _, _, _ int) error {
	if down {
		return robotgo.Toggle(b.String())
	}
	return robotgo.Toggle(b.String(), "up")
}

func (p *Poster) Key(code keys.Code, down bool, flags keys.Flags) error {
	name, ok := keyName(code)
	if !ok {
		return fmt.Errorf("robotgo: no key name for code 0x%02X", uint16(code))
	}
	args := []any{"up"}
	if down {
		args[0] = "down"
	}
	for _, m := range modNames(flags) {
		args = append(args, m)
	}
	return robotgo.KeyToggle(name, args...)
}

// Unicode types r on the down event; the up event is a no-op because
// robotgo posts the full press and release pair at once.
func (p *Poster) Unicode(r rune, down bool) error {
	if down {
		robotgo.UnicodeType(uint32(r))
	}
	return nil
}

// DisplayBounds returns the frame of every attached display in global
// coordinates.
func DisplayBounds() []image.Rectangle {
	n := robotgo.DisplaysNum()
	out := make([]image.Rectangle, 0, n)
	for i := range n {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		if w <= 0 || h <= 0 {
			continue
		}
		out = append(out, image.Rect(x, y, x+w, y+h))
	}
	return out
}
