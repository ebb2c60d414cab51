//go:build windows

package hotkey

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	registerHotKey   = user32.NewProc("RegisterHotKey")
	unregisterHotKey = user32.NewProc("UnregisterHotKey")

	getMessageW      = user32.NewProc("GetMessageW")
	translateMessage = user32.NewProc("TranslateMessage")
	dispatchMessageW = user32.NewProc("DispatchMessageW")
	postMessageW     = user32.NewProc("PostMessageW")
	postQuitMessage  = user32.NewProc("PostQuitMessage")

	defWindowProcW   = user32.NewProc("DefWindowProcW")
	registerClassExW = user32.NewProc("RegisterClassExW")
	createWindowExW  = user32.NewProc("CreateWindowExW")
	destroyWindow    = user32.NewProc("DestroyWindow")

	getModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

type msg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

const (
	hwndMessage uintptr = ^uintptr(2) // HWND_MESSAGE
	wmHotkey            = 0x0312
	wmApp               = 0x8000
	wmAppUpdate         = wmApp + 1
	wmAppQuit           = wmApp + 2
	modNoRepeat         = 0x4000
	windowClass         = "MacrokeysHotkeyWindow"
)

// active is the listener owning the message-only window. wndProc is a
// plain callback, so it finds its listener here.
var (
	activeMu sync.Mutex
	active   *WindowsListener

	classOnce sync.Once
	classAtom uintptr
	classErr  error
)

// WindowsListener registers bindings with RegisterHotKey on a hidden
// message-only window and reports WM_HOTKEY messages.
type WindowsListener struct {
	log *zap.Logger

	mu         sync.Mutex
	hwnd       uintptr
	pending    []Binding
	registered map[uintptr]Binding // hotkey id -> binding
	fire       func(Binding)
}

// NewWindowsListener returns a listener with no bindings.
func NewWindowsListener(log *zap.Logger) *WindowsListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &WindowsListener{
		log:        log.With(zap.String("component", "hotkey-win32")),
		registered: map[uintptr]Binding{},
	}
}

// Listen creates the hidden window and runs its message loop on a locked OS
// thread until ctx is done.
func (l *WindowsListener) Listen(ctx context.Context, fire func(Binding)) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	activeMu.Lock()
	if active != nil {
		activeMu.Unlock()
		return fmt.Errorf("hotkey listener already running")
	}
	active = l
	activeMu.Unlock()
	defer func() {
		activeMu.Lock()
		active = nil
		activeMu.Unlock()
	}()

	hwnd, err := createHiddenWindow()
	if err != nil {
		return fmt.Errorf("create hidden window: %w", err)
	}
	defer destroyWindow.Call(hwnd) //nolint:errcheck

	l.mu.Lock()
	l.hwnd = hwnd
	l.fire = fire
	l.mu.Unlock()
	l.registerAll(hwnd)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			postMessageW.Call(hwnd, wmAppQuit, 0, 0) //nolint:errcheck
		case <-done:
		}
	}()

	messageLoop(l.log)

	l.unregisterAll(hwnd)
	l.mu.Lock()
	l.hwnd = 0
	l.mu.Unlock()
	return ctx.Err()
}

// Update stores bindings and asks the window thread to re-register them.
func (l *WindowsListener) Update(bindings []Binding) error {
	l.mu.Lock()
	l.pending = append([]Binding(nil), bindings...)
	hwnd := l.hwnd
	l.mu.Unlock()
	if hwnd == 0 {
		return nil
	}
	if r, _, err := postMessageW.Call(hwnd, wmAppUpdate, 0, 0); r == 0 {
		return fmt.Errorf("post update message: %w", err)
	}
	return nil
}

// wndProc handles window messages for the hidden message-only window.
//
// Parameters:
//   - hwnd: Handle to the message-only window.
//   - msg: Windows message ID.
//   - wparam: Message-specific WPARAM value.
//   - lparam: Message-specific LPARAM value.
//
// Returns:
//   - uintptr: The result expected by Windows for the given message.
func wndProc(hwnd windows.Handle, m uint32, wparam, lparam uintptr) uintptr {
	activeMu.Lock()
	l := active
	activeMu.Unlock()

	switch {
	case l != nil && m == wmHotkey:
		l.mu.Lock()
		b, ok := l.registered[wparam]
		fire := l.fire
		l.mu.Unlock()
		if ok && fire != nil {
			fire(b)
		}
	case l != nil && m == wmAppUpdate:
		l.unregisterAll(uintptr(hwnd))
		l.registerAll(uintptr(hwnd))
	case m == wmAppQuit:
		postQuitMessage.Call(0) //nolint:errcheck
	default:
		r, _, _ := defWindowProcW.Call(uintptr(hwnd), uintptr(m), wparam, lparam)
		return r
	}
	return 0
}

// createHiddenWindow creates a message-only window. The window class is
// registered once per process.
func createHiddenWindow() (uintptr, error) {
	instance, _, err := getModuleHandleW.Call(0)
	if instance == 0 {
		return 0, err
	}

	classOnce.Do(func() {
		name, err := windows.UTF16PtrFromString(windowClass)
		if err != nil {
			classErr = err
			return
		}
		wc := wndClassEx{
			Size:      uint32(unsafe.Sizeof(wndClassEx{})),
			WndProc:   windows.NewCallback(wndProc),
			Instance:  windows.Handle(instance),
			ClassName: name,
		}
		atom, _, err := registerClassExW.Call(uintptr(unsafe.Pointer(&wc)))
		if atom == 0 {
			classErr = err
			return
		}
		classAtom = atom
	})
	if classErr != nil {
		return 0, classErr
	}

	hwnd, _, lastErr := createWindowExW.Call(
		0, classAtom, 0, 0, 0, 0, 0, 0,
		hwndMessage,
		0, instance, 0,
	)
	if hwnd == 0 {
		return 0, lastErr
	}
	return hwnd, nil
}

// registerAll registers the pending bindings for hwnd. Ids start at 1.
func (l *WindowsListener) registerAll(hwnd uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, b := range l.pending {
		id := uintptr(i + 1)
		r1, _, err := registerHotKey.Call(hwnd, id, uintptr(b.Modifiers)|modNoRepeat, uintptr(b.Key))
		if r1 == 0 {
			l.log.Warn("failed to register hotkey", zap.String("binding", b.String()), zap.Error(err))
			continue
		}
		l.registered[id] = b
	}
	l.log.Debug("registered hotkeys", zap.Int("count", len(l.registered)))
}

// unregisterAll unregisters every hotkey registered for hwnd.
func (l *WindowsListener) unregisterAll(hwnd uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.registered {
		unregisterHotKey.Call(hwnd, id) //nolint:errcheck
	}
	clear(l.registered)
}

// messageLoop runs the Windows message loop until WM_QUIT is received.
func messageLoop(log *zap.Logger) {
	var m msg
	for {
		r, _, _ := getMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) == 0 {
			break
		}
		if int32(r) == -1 {
			log.Error("GetMessage failed", zap.Error(windows.GetLastError()))
			continue
		}
		translateMessage.Call(uintptr(unsafe.Pointer(&m))) //nolint:errcheck
		dispatchMessageW.Call(uintptr(unsafe.Pointer(&m))) //nolint:errcheck
	}
}
