//go:build windows

package sendinput

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/tischda/macrokeys/internal/keys"
	"github.com/tischda/macrokeys/internal/synth"
)

var (
	user32       = windows.NewLazySystemDLL("user32.dll")
	sendInput    = user32.NewProc("SendInput")
	setCursorPos = user32.NewProc("SetCursorPos")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseLeftDown  = 0x0002
	mouseLeftUp    = 0x0004
	mouseRightDown = 0x0008
	mouseRightUp   = 0x0010

	keyExtended = 0x0001
	keyUp       = 0x0002
	keyUnicode  = 0x0004
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// The INPUT union is as large as its biggest member, MOUSEINPUT, so the
// keyboard variant carries explicit padding.
type inputMouseT struct {
	Type uint32
	Mi   mouseInput
}

type inputKeyboardT struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

// Poster implements synth.Poster with SendInput.
type Poster struct{}

var _ synth.Poster = (*Poster)(nil)

// New returns a SendInput poster.
func New() *Poster {
	return &Poster{}
}

func (p *Poster) MovePointer(x, y int) error {
	if r, _, err := setCursorPos.Call(uintptr(int32(x)), uintptr(int32(y))); r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

// Button posts a button event at the current pointer position. Windows
// derives double clicks from timing and distance, so clicks is unused.
func (p *Poster) Button(b synth.Button, down bool, _, _, _ int) error {
	var flags uint32
	switch {
	case b == synth.Right && down:
		flags = mouseRightDown
	case b == synth.Right:
		flags = mouseRightUp
	case down:
		flags = mouseLeftDown
	default:
		flags = mouseLeftUp
	}
	in := inputMouseT{Type: inputMouse, Mi: mouseInput{DwFlags: flags}}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in), 1)
}

// Key posts a virtual key event. Modifier state comes from the modifier
// keys already held, so flags are not applied here.
func (p *Poster) Key(code keys.Code, down bool, _ keys.Flags) error {
	var flags uint32
	if !down {
		flags |= keyUp
	}
	if extended(code) {
		flags |= keyExtended
	}
	in := inputKeyboardT{Type: inputKeyboard, Ki: keybdInput{WVk: uint16(code), DwFlags: flags}}
	return send(unsafe.Pointer(&in), unsafe.Sizeof(in), 1)
}

// Unicode posts r as KEYEVENTF_UNICODE events, one per UTF-16 unit.
func (p *Poster) Unicode(r rune, down bool) error {
	units := utf16.Encode([]rune{r})
	ins := make([]inputKeyboardT, len(units))
	for i, u := range units {
		flags := uint32(keyUnicode)
		if !down {
			flags |= keyUp
		}
		ins[i] = inputKeyboardT{Type: inputKeyboard, Ki: keybdInput{WScan: u, DwFlags: flags}}
	}
	return send(unsafe.Pointer(&ins[0]), unsafe.Sizeof(ins[0]), len(ins))
}

func send(ptr unsafe.Pointer, size uintptr, n int) error {
	r, _, err := sendInput.Call(uintptr(n), uintptr(ptr), size)
	if int(r) != n {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func extended(code keys.Code) bool {
	switch code {
	case 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x2E, keys.CodeCommand:
		return true
	}
	return false
}
