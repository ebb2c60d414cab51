package gohook

import "github.com/tischda/macrokeys/internal/keys"

// vcNames maps libuiohook VC_* key codes to key names understood by the keys
// package. Left and right modifier variants collapse to one name.
var vcNames = map[uint16]string{
	0x0001: "Escape",
	0x003B: "F1", 0x003C: "F2", 0x003D: "F3", 0x003E: "F4", 0x003F: "F5",
	0x0040: "F6", 0x0041: "F7", 0x0042: "F8", 0x0043: "F9", 0x0044: "F10",
	0x0057: "F11", 0x0058: "F12", 0x005B: "F13", 0x005C: "F14", 0x005D: "F15",
	0x0063: "F16", 0x0064: "F17", 0x0065: "F18", 0x0066: "F19", 0x0067: "F20",

	0x0029: "`",
	0x0002: "1", 0x0003: "2", 0x0004: "3", 0x0005: "4", 0x0006: "5",
	0x0007: "6", 0x0008: "7", 0x0009: "8", 0x000A: "9", 0x000B: "0",
	0x000C: "-", 0x000D: "=",
	0x000E: "Delete",
	0x000F: "Tab",
	0x001A: "[", 0x001B: "]", 0x002B: "\\",
	0x0027: ";", 0x0028: "'",
	0x001C: "Return",
	0x0033: ",", 0x0034: ".", 0x0035: "/",
	0x0039: "Space",

	0x0010: "Q", 0x0011: "W", 0x0012: "E", 0x0013: "R", 0x0014: "T",
	0x0015: "Y", 0x0016: "U", 0x0017: "I", 0x0018: "O", 0x0019: "P",
	0x001E: "A", 0x001F: "S", 0x0020: "D", 0x0021: "F", 0x0022: "G",
	0x0023: "H", 0x0024: "J", 0x0025: "K", 0x0026: "L",
	0x002C: "Z", 0x002D: "X", 0x002E: "C", 0x002F: "V", 0x0030: "B",
	0x0031: "N", 0x0032: "M",

	0x0E47: "Home", 0x0E4F: "End", 0x0E49: "PageUp", 0x0E51: "PageDown",
	0x0E53: "ForwardDelete",
	0xE048: "Up", 0xE050: "Down", 0xE04B: "Left", 0xE04D: "Right",

	0x002A: "Shift", 0x0036: "Shift",
	0x001D: "Ctrl", 0x0E1D: "Ctrl",
	0x0038: "Alt", 0x0E38: "Alt",
	0x0E5B: "Command", 0x0E5C: "Command",
}

var vcToCode = func() map[uint16]keys.Code {
	m := make(map[uint16]keys.Code, len(vcNames))
	for vc, name := range vcNames {
		if code, ok := keys.Lookup(name); ok {
			m[vc] = code
		}
	}
	return m
}()
