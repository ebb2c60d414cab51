// Package hotkey parses hotkey strings into bindings and routes key-down
// events for those bindings to macro playback or the emergency stop.
package hotkey

import (
	"strings"

	"github.com/tischda/macrokeys/internal/keys"
)

// Binding is a non-modifier key plus a set of modifiers.
type Binding struct {
	Key       keys.Code
	Modifiers keys.Flags
}

// String renders the binding like "Ctrl+Shift+F1".
func (b Binding) String() string {
	name, ok := keys.Name(b.Key)
	if !ok {
		name = "?"
	}
	if mods := b.Modifiers.String(); mods != "" {
		return mods + "+" + name
	}
	return name
}

// Parse converts a '+' separated hotkey string (e.g. "Ctrl+F1") into a
// Binding.
//
// Parameters:
//   - s: hotkey string; modifier tokens are case-insensitive.
//
// Returns:
//   - Binding: the parsed binding.
//   - bool: false if s is empty, contains no non-modifier key, more than one
//     non-modifier key, or an unknown key name.
func Parse(s string) (Binding, bool) {
	var b Binding
	var keyName string
	for p := range strings.SplitSeq(s, "+") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if mod, ok := keys.ParseModifier(p); ok {
			b.Modifiers |= mod
			continue
		}
		if keyName != "" {
			return Binding{}, false
		}
		keyName = p
	}
	if keyName == "" {
		return Binding{}, false
	}
	code, ok := keys.Lookup(keyName)
	if !ok {
		return Binding{}, false
	}
	b.Key = code
	return b, true
}

// MustParse is like Parse but panics on invalid input. Intended for
// constants.
func MustParse(s string) Binding {
	b, ok := Parse(s)
	if !ok {
		panic("hotkey: invalid binding " + s)
	}
	return b
}
