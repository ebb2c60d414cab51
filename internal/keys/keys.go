// Package keys maps human-readable key names to virtual-key codes and
// modifier flags.
//
// Codes follow the Windows virtual-key numbering. Synthesis backends on other
// platforms translate them to their native form.
package keys

import (
	"sort"
	"strings"
)

// Code is a virtual-key code.
type Code uint16

// Modifier key codes.
const (
	CodeShift   Code = 0x10
	CodeControl Code = 0x11
	CodeAlt     Code = 0x12
	CodeCommand Code = 0x5B
)

// Frequently referenced non-modifier codes.
const (
	CodeBackspace Code = 0x08
	CodeTab       Code = 0x09
	CodeReturn    Code = 0x0D
	CodeEscape    Code = 0x1B
	CodeSpace     Code = 0x20
	CodeF1        Code = 0x70
	CodeF12       Code = 0x7B
)

var keyMap = map[string]Code{
	// Function keys
	"F1": 0x70, "F2": 0x71, "F3": 0x72, "F4": 0x73, "F5": 0x74,
	"F6": 0x75, "F7": 0x76, "F8": 0x77, "F9": 0x78, "F10": 0x79,
	"F11": 0x7A, "F12": 0x7B, "F13": 0x7C, "F14": 0x7D, "F15": 0x7E,
	"F16": 0x7F, "F17": 0x80, "F18": 0x81, "F19": 0x82, "F20": 0x83,

	// Modifiers
	"Ctrl": CodeControl, "Control": CodeControl,
	"Shift": CodeShift,
	"Alt": CodeAlt, "Option": CodeAlt,
	"Win": CodeCommand, "Command": CodeCommand, "Cmd": CodeCommand,

	// Navigation and editing
	"Return": CodeReturn, "Enter": CodeReturn,
	"Tab":    CodeTab,
	"Space":  CodeSpace,
	"Delete": CodeBackspace, "Backspace": CodeBackspace,
	"ForwardDelete": 0x2E,
	"Escape":        CodeEscape, "Esc": CodeEscape,
	"Home":     0x24,
	"End":      0x23,
	"PageUp":   0x21,
	"PageDown": 0x22,
	"Left":     0x25, "Up": 0x26, "Right": 0x27, "Down": 0x28,

	// Punctuation
	"-": 0xBD, "=": 0xBB,
	"[": 0xDB, "]": 0xDD,
	"\\": 0xDC,
	";":  0xBA, "'": 0xDE,
	",": 0xBC, ".": 0xBE,
	"/": 0xBF, "`": 0xC0,
}

// preferred names win the reverse lookup over their aliases.
var preferred = map[Code]string{
	CodeControl:   "Ctrl",
	CodeShift:     "Shift",
	CodeAlt:       "Alt",
	CodeCommand:   "Command",
	CodeReturn:    "Return",
	CodeTab:       "Tab",
	CodeSpace:     "Space",
	CodeBackspace: "Delete",
	CodeEscape:    "Escape",
}

var (
	lowerMap map[string]Code
	nameMap  map[Code]string
)

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		keyMap[string(c)] = Code(c)
	}
	for c := '0'; c <= '9'; c++ {
		keyMap[string(c)] = Code(c)
	}

	lowerMap = make(map[string]Code, len(keyMap))
	nameMap = make(map[Code]string, len(keyMap))
	for name, code := range keyMap {
		lowerMap[strings.ToLower(name)] = code
		if p, ok := preferred[code]; ok {
			nameMap[code] = p
			continue
		}
		// Map iteration order is random; keep the lexically smallest alias
		// so reverse lookup is stable.
		if cur, ok := nameMap[code]; !ok || name < cur {
			nameMap[code] = name
		}
	}
}

// Lookup resolves a key name to its code. The exact spelling is tried first,
// then the upper-cased single character, then a case-insensitive match.
func Lookup(name string) (Code, bool) {
	if code, ok := keyMap[name]; ok {
		return code, true
	}
	if len(name) == 1 {
		if code, ok := keyMap[strings.ToUpper(name)]; ok {
			return code, true
		}
	}
	code, ok := lowerMap[strings.ToLower(name)]
	return code, ok
}

// Name returns the preferred name for code.
func Name(code Code) (string, bool) {
	name, ok := nameMap[code]
	return name, ok
}

// Names returns every preferred key name in sorted order.
func Names() []string {
	names := make([]string, 0, len(nameMap))
	for _, n := range nameMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
