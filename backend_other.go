//go:build !windows

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/hotkey"
	"github.com/tischda/macrokeys/internal/synth"
	"github.com/tischda/macrokeys/internal/synth/robotgo"
	"github.com/tischda/macrokeys/internal/synth/xdo"
)

// newPoster returns the input backend named in cfg. robotgo is the default.
func newPoster(cfg PlaybackConfig, log *zap.Logger) (synth.Poster, error) {
	switch cfg.Backend {
	case backendAuto, backendRobotgo:
		log.Debug("using robotgo backend")
		return robotgo.New(), nil
	case backendXdotool:
		log.Debug("using xdotool backend", zap.String("display", cfg.Display))
		return xdo.New(xdo.NewTool(cfg.Display)), nil
	}
	return nil, fmt.Errorf("playback backend %q is only available on windows", cfg.Backend)
}

// newListener matches hotkeys against key-downs from the global hook.
func newListener(hub *hook.Hub, _ *zap.Logger) hotkey.Listener {
	return hotkey.NewHubListener(hub)
}
