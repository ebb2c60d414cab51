package keys

import "strings"

// Flags is a set of modifier bits. The values match the MOD_* constants
// accepted by RegisterHotKey.
type Flags uint32

const (
	ModAlt   Flags = 0x0001
	ModCtrl  Flags = 0x0002
	ModShift Flags = 0x0004
	ModSuper Flags = 0x0008
)

// modifierFlags lists the exact modifier spellings a macro step may use.
var modifierFlags = map[string]Flags{
	"Ctrl":    ModCtrl,
	"Control": ModCtrl,
	"Alt":     ModAlt,
	"Option":  ModAlt,
	"Shift":   ModShift,
	"Win":     ModSuper,
	"Command": ModSuper,
	"Cmd":     ModSuper,
}

// IsModifier reports whether name is one of the modifier key names.
func IsModifier(name string) bool {
	_, ok := modifierFlags[name]
	return ok
}

// ModifierFlag returns the flag bit for a modifier name.
func ModifierFlag(name string) (Flags, bool) {
	f, ok := modifierFlags[name]
	return f, ok
}

// CombinedFlags returns the union of the flags of the modifier names in
// names. Non-modifier names are ignored.
func CombinedFlags(names []string) Flags {
	var f Flags
	for _, n := range names {
		f |= modifierFlags[n]
	}
	return f
}

// ParseModifier resolves a modifier token case-insensitively, as used in
// hotkey strings.
func ParseModifier(token string) (Flags, bool) {
	switch strings.ToLower(token) {
	case "ctrl", "control":
		return ModCtrl, true
	case "alt", "option":
		return ModAlt, true
	case "shift":
		return ModShift, true
	case "win", "cmd", "command":
		return ModSuper, true
	}
	return 0, false
}

// Has reports whether all bits of mod are set.
func (f Flags) Has(mod Flags) bool {
	return mod != 0 && f&mod == mod
}

// String renders the flags as "Ctrl+Alt+Shift+Cmd" in that fixed order.
func (f Flags) String() string {
	var parts []string
	if f.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if f.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if f.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if f.Has(ModSuper) {
		parts = append(parts, "Cmd")
	}
	return strings.Join(parts, "+")
}

// Codes returns the modifier key codes for the set bits, in the same order
// as String.
func (f Flags) Codes() []Code {
	var codes []Code
	if f.Has(ModCtrl) {
		codes = append(codes, CodeControl)
	}
	if f.Has(ModAlt) {
		codes = append(codes, CodeAlt)
	}
	if f.Has(ModShift) {
		codes = append(codes, CodeShift)
	}
	if f.Has(ModSuper) {
		codes = append(codes, CodeCommand)
	}
	return codes
}
