// Package synth turns macro actions into timed sequences of low-level input
// events posted through a platform backend.
package synth

import (
	"errors"
	"time"

	"github.com/tischda/macrokeys/internal/keys"
)

// Delays between the events of a single primitive.
const (
	MoveDelay = 30 * time.Millisecond
	DownDelay = 20 * time.Millisecond
	CharDelay = 10 * time.Millisecond
)

// Button is a mouse button.
type Button int

const (
	Left Button = iota
	Right
)

func (b Button) String() string {
	if b == Right {
		return "right"
	}
	return "left"
}

// Poster posts individual input events to the OS. Coordinates are global
// screen coordinates with a top-left origin.
type Poster interface {
	MovePointer(x, y int) error
	// Button presses or releases b at (x, y). clicks is 1 for a single
	// click and 2 for the second click of a double click.
	Button(b Button, down bool, x, y, clicks int) error
	// Key presses or releases the virtual key code with the given modifier
	// flags attached to the event.
	Key(code keys.Code, down bool, flags keys.Flags) error
	// Unicode presses or releases a key carrying the character r.
	Unicode(r rune, down bool) error
}

// Synthesizer composes Poster events into clicks, shortcuts and typing,
// inserting the fixed delays between events.
type Synthesizer struct {
	poster Poster
	sleep  func(time.Duration)
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Synthesizer) { s.sleep = fn }
}

// New returns a synthesizer posting through p.
func New(p Poster, opts ...Option) *Synthesizer {
	s := &Synthesizer{poster: p, sleep: time.Sleep}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MovePointer moves the pointer without any delay.
func (s *Synthesizer) MovePointer(x, y int) error {
	return s.poster.MovePointer(x, y)
}

// LeftClick moves to (x, y) and clicks the left button.
func (s *Synthesizer) LeftClick(x, y int) error {
	return s.click(Left, x, y)
}

// RightClick moves to (x, y) and clicks the right button.
func (s *Synthesizer) RightClick(x, y int) error {
	return s.click(Right, x, y)
}

// DoubleClick moves to (x, y) and posts two left clicks, the second one
// flagged with a click count of 2.
func (s *Synthesizer) DoubleClick(x, y int) error {
	errs := []error{s.poster.MovePointer(x, y)}
	s.sleep(MoveDelay)
	errs = append(errs,
		s.poster.Button(Left, true, x, y, 1),
		s.poster.Button(Left, false, x, y, 1),
	)
	s.sleep(DownDelay)
	errs = append(errs,
		s.poster.Button(Left, true, x, y, 2),
		s.poster.Button(Left, false, x, y, 2),
	)
	return errors.Join(errs...)
}

func (s *Synthesizer) click(b Button, x, y int) error {
	errs := []error{s.poster.MovePointer(x, y)}
	s.sleep(MoveDelay)
	errs = append(errs, s.poster.Button(b, true, x, y, 1))
	s.sleep(DownDelay)
	errs = append(errs, s.poster.Button(b, false, x, y, 1))
	return errors.Join(errs...)
}

// Shortcut presses every key in names in order, then releases them in
// reverse order. Non-modifier events carry the combined flags of the
// listed modifiers. Unknown key names are skipped.
func (s *Synthesizer) Shortcut(names []string) error {
	type press struct {
		code     keys.Code
		modifier bool
	}
	flags := keys.CombinedFlags(names)
	var order []press
	for _, name := range names {
		code, ok := keys.Lookup(name)
		if !ok {
			continue
		}
		order = append(order, press{code: code, modifier: keys.IsModifier(name)})
	}

	var errs []error
	eventFlags := func(p press) keys.Flags {
		if p.modifier {
			return 0
		}
		return flags
	}
	for _, p := range order {
		errs = append(errs, s.poster.Key(p.code, true, eventFlags(p)))
	}
	for i := len(order) - 1; i >= 0; i-- {
		errs = append(errs, s.poster.Key(order[i].code, false, eventFlags(order[i])))
	}
	return errors.Join(errs...)
}

// Keystroke presses and releases a single key without modifiers. Unknown
// names do nothing.
func (s *Synthesizer) Keystroke(name string) error {
	code, ok := keys.Lookup(name)
	if !ok {
		return nil
	}
	return errors.Join(
		s.poster.Key(code, true, 0),
		s.poster.Key(code, false, 0),
	)
}

// TypeText posts a down/up pair per character, waiting CharDelay after
// each one.
func (s *Synthesizer) TypeText(text string) error {
	var errs []error
	for _, r := range text {
		errs = append(errs,
			s.poster.Unicode(r, true),
			s.poster.Unicode(r, false),
		)
		s.sleep(CharDelay)
	}
	return errors.Join(errs...)
}
