package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// setupLogging builds the process logger: a console encoder on stdout when
// path is empty, otherwise JSON lines appended to path.
//
// Parameters:
//   - path: Log file path, empty for stdout.
//   - level: Minimum level name ("debug", "info", ...).
//
// Returns:
//   - *zap.Logger: The logger.
//   - func(): Flushes the logger and closes the log file.
//   - error: Non-nil if the level is invalid or the file cannot be opened.
func setupLogging(path, level string) (*zap.Logger, func(), error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if path == "" {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), lvl)
		log := zap.New(core)
		return log, func() { log.Sync() }, nil //nolint:errcheck
	}

	// Ensure directory exists for file logging
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(f), lvl)
	log := zap.New(core, zap.AddCaller())
	log.Info("=== LOG INITIALIZED ===", zap.String("name", name), zap.String("version", version))
	return log, func() {
		log.Sync() //nolint:errcheck
		f.Close()  //nolint:errcheck
	}, nil
}
