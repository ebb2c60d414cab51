package xdo

import (
	"fmt"

	"github.com/tischda/macrokeys/internal/keys"
)

var keysyms = map[keys.Code]string{
	keys.CodeControl:   "Control_L",
	keys.CodeShift:     "Shift_L",
	keys.CodeAlt:       "Alt_L",
	keys.CodeCommand:   "Super_L",
	keys.CodeReturn:    "Return",
	keys.CodeTab:       "Tab",
	keys.CodeSpace:     "space",
	keys.CodeBackspace: "BackSpace",
	keys.CodeEscape:    "Escape",
	0x2E:               "Delete",
	0x24:               "Home",
	0x23:               "End",
	0x21:               "Prior",
	0x22:               "Next",
	0x25:               "Left",
	0x26:               "Up",
	0x27:               "Right",
	0x28:               "Down",
	0xBD:               "minus",
	0xBB:               "equal",
	0xDB:               "bracketleft",
	0xDD:               "bracketright",
	0xDC:               "backslash",
	0xBA:               "semicolon",
	0xDE:               "apostrophe",
	0xBC:               "comma",
	0xBE:               "period",
	0xBF:               "slash",
	0xC0:               "grave",
}

func keysym(code keys.Code) (string, bool) {
	if s, ok := keysyms[code]; ok {
		return s, true
	}
	switch {
	case code >= 'A' && code <= 'Z':
		return string(rune(code - 'A' + 'a')), true
	case code >= '0' && code <= '9':
		return string(rune(code)), true
	case code >= keys.CodeF1 && code <= keys.CodeF1+23:
		return fmt.Sprintf("F%d", code-keys.CodeF1+1), true
	}
	return "", false
}
