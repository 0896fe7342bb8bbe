package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where logs go.
type Options struct {
	// Console tees logs to stderr. Leave off while the TUI owns the terminal.
	Console bool
	Level   zapcore.Level
}

// New creates a zap logger that writes JSON to the given log file path and,
// optionally, to stderr. Profile name and PID are included as initial fields.
func New(logPath, profileName string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), opts.Level)
	if opts.Console {
		stderrCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), opts.Level)
		core = zapcore.NewTee(core, stderrCore)
	}

	logger := zap.New(core,
		zap.Fields(
			zap.String("profile", profileName),
			zap.Int("pid", os.Getpid()),
		),
	)
	return logger, nil
}
