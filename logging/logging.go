// Package logging builds the zap loggers shared by the estimator tools.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerConfig returns the console logger config used by every tool:
// ISO8601 timestamps, capitalised levels, short callers and no stacktraces.
func NewLoggerConfig(level zapcore.Level, outputs ...string) zap.Config {
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a named sugared logger at the given level
// ("debug", "info", "warn", "error").
func NewLogger(name, level string, outputs ...string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "logging: bad level %q", level)
	}
	l, err := NewLoggerConfig(lvl, outputs...).Build()
	if err != nil {
		return nil, errors.Wrap(err, "logging: building logger")
	}
	return l.Named(name).Sugar(), nil
}

// OrNop returns l, or a logger that discards everything if l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
