package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/hotkey"
)

// environment variable naming the config file, takes precedence over the default path
const configEnvVar = "MACROKEYS_CONFIG"

// prefix of the variables overriding single config values, e.g. MACROKEYS_STORE_PATH
const envPrefix = "MACROKEYS"

// Playback backends.
const (
	backendAuto      = "auto"
	backendRobotgo   = "robotgo"
	backendXdotool   = "xdotool"
	backendSendInput = "sendinput"
)

type Config struct {
	Store    StoreConfig    `toml:"store"`
	Hotkeys  HotkeysConfig  `toml:"hotkeys"`
	Playback PlaybackConfig `toml:"playback"`
	Control  ControlConfig  `toml:"control"`
	Log      LogConfig      `toml:"log"`
}

type StoreConfig struct {
	Path  string `toml:"path"`  // macro store file
	Watch bool   `toml:"watch"` // reload the store when it changes on disk
}

type HotkeysConfig struct {
	Stop string `toml:"stop"` // emergency stop hotkey
}

type PlaybackConfig struct {
	Backend string `toml:"backend"`
	Display string `toml:"display"` // X display for the xdotool backend
}

type ControlConfig struct {
	Listen string `toml:"listen"` // empty disables the control server
}

type LogConfig struct {
	Path  string `toml:"path"` // empty logs to stdout
	Level string `toml:"level"`
}

// defaultConfigDir returns ~/.config/macrokeys.
func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "macrokeys")
}

func defaultConfig() Config {
	return Config{
		Store:    StoreConfig{Path: filepath.Join(defaultConfigDir(), "macros.json"), Watch: true},
		Hotkeys:  HotkeysConfig{Stop: "F12"},
		Playback: PlaybackConfig{Backend: backendAuto},
		Log:      LogConfig{Level: "info"},
	}
}

// resolveConfigPath picks the config file: the flag value, then
// MACROKEYS_CONFIG, then the default location.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return expandPath(flagPath)
	}
	if p := os.Getenv(configEnvVar); p != "" {
		return expandPath(p)
	}
	return filepath.Join(defaultConfigDir(), "config.toml")
}

// loadConfig reads a TOML config file, applies environment overrides and
// validates the result. A missing file yields the defaults.
//
// Parameters:
//   - path: Path to the TOML config file.
//
// Returns:
//   - Config: The effective configuration.
//   - error: Non-nil if the file cannot be decoded or a value is invalid.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Log.Path = expandPath(cfg.Log.Path)
	cfg.Playback.Backend = strings.ToLower(strings.TrimSpace(cfg.Playback.Backend))
	if cfg.Playback.Backend == "" {
		cfg.Playback.Backend = backendAuto
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if _, ok := hotkey.Parse(c.Hotkeys.Stop); !ok {
		return fmt.Errorf("hotkeys.stop: invalid hotkey %q", c.Hotkeys.Stop)
	}
	switch c.Playback.Backend {
	case backendAuto, backendRobotgo, backendXdotool, backendSendInput:
	default:
		return fmt.Errorf("playback.backend: unknown backend %q", c.Playback.Backend)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// stopBinding returns the parsed stop hotkey. validate guarantees it parses.
func (c *Config) stopBinding() hotkey.Binding {
	b, _ := hotkey.Parse(c.Hotkeys.Stop)
	return b
}

// expandPath expands environment variables and a leading ~.
func expandPath(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(p)
}

// shouldReloadStore reports whether an fsnotify event warrants a store reload.
//
// Parameters:
//   - storePath: Cleaned absolute path to the store file.
//   - storeBase: Base filename of the store file.
//   - event: Filesystem event to evaluate.
//
// Returns:
//   - bool: True if the event should trigger a reload.
func shouldReloadStore(storePath, storeBase string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == storePath {
		return true
	}
	// Some editors write via temp + rename, resulting in partial paths.
	if filepath.Base(name) == storeBase {
		return true
	}
	return false
}
