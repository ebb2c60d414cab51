// Package xdo posts input events by running the xdotool CLI against an X11
// display. It needs no cgo, which makes it usable in minimal containers.
package xdo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/tischda/macrokeys/internal/keys"
	"github.com/tischda/macrokeys/internal/synth"
)

// callTimeout bounds a single xdotool invocation.
const callTimeout = 5 * time.Second

// Tool is a thin wrapper around the xdotool binary. It injects DISPLAY
// ahead of the inherited environment when a display is configured.
type Tool struct {
	bin     string
	display string
}

// NewTool returns a wrapper for display (e.g. ":0"). An empty display keeps
// the inherited DISPLAY. The binary is taken from XDOTOOL_BIN when set.
func NewTool(display string) *Tool {
	bin := os.Getenv("XDOTOOL_BIN")
	if bin == "" {
		bin = "xdotool"
	}
	return &Tool{bin: bin, display: display}
}

// Run executes xdotool with args and returns its combined output.
func (t *Tool) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Env = os.Environ()
	if t.display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY="+t.display)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("xdotool %v: %w: %s", args, err, bytes.TrimSpace(out))
	}
	return out, nil
}

// Runner executes one xdotool command line.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// Poster implements synth.Poster with xdotool commands.
type Poster struct {
	run Runner
}

var _ synth.Poster = (*Poster)(nil)

// New returns a poster executing through r.
func New(r Runner) *Poster {
	return &Poster{run: r}
}

func (p *Poster) exec(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	_, err := p.run.Run(ctx, args...)
	return err
}

func (p *Poster) MovePointer(x, y int) error {
	return p.exec("mousemove", "--sync", strconv.Itoa(x), strconv.Itoa(y))
}

// Button presses or releases a button. X11 has no click count on button
// events; the server derives double clicks from timing.
func (p *Poster) Button(b synth.Button, down bool, _, _, _ int) error {
	cmd := "mouseup"
	if down {
		cmd = "mousedown"
	}
	return p.exec(cmd, buttonNumber(b))
}

// Key presses or releases a single keysym. Modifier state comes from the
// modifier keys held by earlier events, so flags are not sent again.
func (p *Poster) Key(code keys.Code, down bool, _ keys.Flags) error {
	sym, ok := keysym(code)
	if !ok {
		return fmt.Errorf("xdotool: no keysym for code 0x%02X", uint16(code))
	}
	cmd := "keyup"
	if down {
		cmd = "keydown"
	}
	return p.exec(cmd, sym)
}

// Unicode types r on the down event; xdotool posts press and release
// together, so the up event does nothing.
func (p *Poster) Unicode(r rune, down bool) error {
	if !down {
		return nil
	}
	return p.exec("type", "--delay", "0", "--", string(r))
}

func buttonNumber(b synth.Button) string {
	if b == synth.Right {
		return "3"
	}
	return "1"
}
