// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the logger.
type Options struct {
	// Level is one of DEBUG, INFO, WARN or ERROR, case-insensitive.
	Level   string
	Verbose bool
	// File, when set, receives a rotated copy of every entry.
	File string
	// Console defaults to stderr.
	Console io.Writer
}

// ParseLevel maps a LOG_LEVEL value to a zap level. Unknown values fall back
// to INFO and report false.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "", "INFO":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = nil
	cfg.CallerKey = ""
	return cfg
}

// New returns a console logger, tee'd to a rotating file when opts.File is set.
func New(opts Options) (*zap.Logger, error) {
	level, ok := ParseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	enc := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(console), atom),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 5,
				MaxAge:     30, // days
				Compress:   true,
			}),
			atom,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if !ok {
		logger.Warn("unknown log level, using INFO", zap.String("level", opts.Level))
	}
	return logger, nil
}
