package robotgo

import (
	"fmt"
	"strings"

	"github.com/tischda/macrokeys/internal/keys"
)

// special holds robotgo names that differ from the lower-cased key name.
var special = map[keys.Code]string{
	keys.CodeControl:   "ctrl",
	keys.CodeShift:     "shift",
	keys.CodeAlt:       "alt",
	keys.CodeCommand:   "cmd",
	keys.CodeReturn:    "enter",
	keys.CodeBackspace: "backspace",
	keys.CodeEscape:    "esc",
	0x2E:               "delete",
}

func keyName(code keys.Code) (string, bool) {
	if name, ok := special[code]; ok {
		return name, true
	}
	if code >= keys.CodeF1 && code <= keys.CodeF1+23 {
		return fmt.Sprintf("f%d", code-keys.CodeF1+1), true
	}
	name, ok := keys.Name(code)
	if !ok {
		return "", false
	}
	return strings.ToLower(name), true
}

func modNames(flags keys.Flags) []string {
	var out []string
	if flags.Has(keys.ModCtrl) {
		out = append(out, "ctrl")
	}
	if flags.Has(keys.ModAlt) {
		out = append(out, "alt")
	}
	if flags.Has(keys.ModShift) {
		out = append(out, "shift")
	}
	if flags.Has(keys.ModSuper) {
		out = append(out, "cmd")
	}
	return out
}
