package hotkey

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/macro"
)

// Listener delivers key-down events for a set of bindings. Implementations
// that register bindings with the OS only report the bindings passed to the
// last Update call; hook based implementations may report any key.
type Listener interface {
	// Listen blocks until ctx is done, calling fire for each key-down.
	Listen(ctx context.Context, fire func(Binding)) error
	// Update replaces the set of bindings the listener must report.
	Update(bindings []Binding) error
}

// Dispatcher maps bindings to macro ids and routes key-downs to the play or
// stop callbacks. It is safe for concurrent use.
type Dispatcher struct {
	stop   Binding
	onPlay func(id string)
	onStop func()
	log    *zap.Logger

	mu       sync.Mutex
	bindings map[string]Binding // macro id -> binding
	raw      map[string]string  // macro id -> hotkey string as entered
	order    []string           // macro ids in registration order
	listener Listener
}

// NewDispatcher creates a dispatcher with the given emergency stop binding.
//
// Parameters:
//   - stop: binding that always triggers onStop.
//   - onPlay: called with the macro id when a macro binding is pressed.
//   - onStop: called when the stop binding is pressed.
//   - log: logger, nil discards.
//
// Returns:
//   - *Dispatcher: a dispatcher with no macro bindings.
func NewDispatcher(stop Binding, onPlay func(id string), onStop func(), log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		stop:     stop,
		onPlay:   onPlay,
		onStop:   onStop,
		log:      log.With(zap.String("component", "hotkey")),
		bindings: map[string]Binding{},
		raw:      map[string]string{},
	}
}

// StopBinding returns the emergency stop binding.
func (d *Dispatcher) StopBinding() Binding {
	return d.stop
}

// IsReserved reports whether hotkey parses to the stop binding.
func (d *Dispatcher) IsReserved(hotkey string) bool {
	b, ok := Parse(hotkey)
	return ok && b == d.stop
}

// RegisterAll clears every macro binding and registers the hotkeys of
// macros in order. Empty, unparsable and reserved hotkeys are skipped.
func (d *Dispatcher) RegisterAll(macros []macro.Macro) {
	d.mu.Lock()
	clear(d.bindings)
	clear(d.raw)
	d.order = d.order[:0]
	for _, m := range macros {
		if m.Hotkey == "" {
			continue
		}
		d.register(m.ID, m.Hotkey)
	}
	d.log.Debug("registered hotkeys", zap.Int("count", len(d.order)))
	d.mu.Unlock()
	d.sync()
}

// UnregisterAll removes every macro binding. The stop binding stays.
func (d *Dispatcher) UnregisterAll() {
	d.mu.Lock()
	clear(d.bindings)
	clear(d.raw)
	d.order = d.order[:0]
	d.mu.Unlock()
	d.sync()
}

// IsHotkeyInUse reports whether another macro registered exactly the same
// hotkey string. Strings are compared verbatim, so "Ctrl+F1" and "ctrl+f1"
// do not conflict.
func (d *Dispatcher) IsHotkeyInUse(hotkey, excludingID string) bool {
	if hotkey == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, s := range d.raw {
		if id != excludingID && s == hotkey {
			return true
		}
	}
	return false
}

// Bindings returns the stop binding followed by each distinct macro binding
// in registration order.
func (d *Dispatcher) Bindings() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []Binding{d.stop}
	for _, id := range d.order {
		if b := d.bindings[id]; !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	return out
}

// KeyDown routes a pressed binding. It returns true if the binding belonged
// to the stop key or a macro.
func (d *Dispatcher) KeyDown(b Binding) bool {
	if b == d.stop {
		d.log.Debug("stop hotkey pressed")
		if d.onStop != nil {
			d.onStop()
		}
		return true
	}
	d.mu.Lock()
	var target string
	for _, id := range d.order {
		if d.bindings[id] == b {
			target = id
			break
		}
	}
	d.mu.Unlock()
	if target == "" {
		return false
	}
	d.log.Debug("macro hotkey pressed", zap.String("binding", b.String()), zap.String("macro", target))
	if d.onPlay != nil {
		d.onPlay(target)
	}
	return true
}

// Run attaches l and blocks in its Listen loop until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, l Listener) error {
	d.mu.Lock()
	d.listener = l
	d.mu.Unlock()
	d.sync()
	defer func() {
		d.mu.Lock()
		d.listener = nil
		d.mu.Unlock()
	}()
	err := l.Listen(ctx, func(b Binding) { d.KeyDown(b) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) register(id, hotkey string) bool {
	b, ok := Parse(hotkey)
	if !ok {
		d.log.Warn("skipping invalid hotkey", zap.String("macro", id), zap.String("hotkey", hotkey))
		return false
	}
	if b == d.stop {
		d.log.Warn("skipping hotkey reserved for stop", zap.String("macro", id), zap.String("hotkey", hotkey))
		return false
	}
	d.bindings[id] = b
	d.raw[id] = hotkey
	d.order = append(d.order, id)
	return true
}

// sync pushes the current binding set to the attached listener.
func (d *Dispatcher) sync() {
	d.mu.Lock()
	l := d.listener
	d.mu.Unlock()
	if l == nil {
		return
	}
	if err := l.Update(d.Bindings()); err != nil {
		d.log.Error("failed to update hotkey registrations", zap.Error(err))
	}
}
