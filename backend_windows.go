//go:build windows

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/hotkey"
	"github.com/tischda/macrokeys/internal/synth"
	"github.com/tischda/macrokeys/internal/synth/robotgo"
	"github.com/tischda/macrokeys/internal/synth/sendinput"
)

// newPoster returns the input backend named in cfg. SendInput is the
// default on Windows.
func newPoster(cfg PlaybackConfig, log *zap.Logger) (synth.Poster, error) {
	switch cfg.Backend {
	case backendAuto, backendSendInput:
		log.Debug("using SendInput backend")
		return sendinput.New(), nil
	case backendRobotgo:
		log.Debug("using robotgo backend")
		return robotgo.New(), nil
	}
	return nil, fmt.Errorf("playback backend %q is not available on windows", cfg.Backend)
}

// newListener registers hotkeys with RegisterHotKey so they are swallowed
// system wide. The hub still feeds the position picker.
func newListener(_ *hook.Hub, log *zap.Logger) hotkey.Listener {
	return hotkey.NewWindowsListener(log)
}
