// Package logging builds the merge tool's logger: a console encoder for
// stderr gated by verbosity, and an optional rotating JSON sink when
// --log names a file (spec section 6's "Persistent state").
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Verbosity selects the console core's minimum level (-v/-q).
type Verbosity int

const (
	Quiet Verbosity = iota
	Normal
	Verbose
)

// Options configures New.
type Options struct {
	Verbosity Verbosity
	// LogPath, when non-empty, adds a rotating JSON core at this path
	// (--log); empty means --no-log or unset.
	LogPath    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger writing a human-readable console line to
// stderr and, when LogPath is set, structured JSON lines to a rotated
// log file via lumberjack.
func New(opts Options) *zap.Logger {
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		levelFor(opts.Verbosity),
	)

	cores := []zapcore.Core{consoleCore}
	if opts.LogPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.LogPath,
			MaxSize:    defaultInt(opts.MaxSizeMB, 10),
			MaxBackups: defaultInt(opts.MaxBackups, 5),
			MaxAge:     defaultInt(opts.MaxAgeDays, 28),
		}
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "ts"
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(jsonCfg),
			zapcore.AddSync(rotator),
			zapcore.DebugLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func levelFor(v Verbosity) zapcore.Level {
	switch v {
	case Quiet:
		return zapcore.ErrorLevel
	case Verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
