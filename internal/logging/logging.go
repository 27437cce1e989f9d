// Package logging builds the zap logger used across git-ps, generalizing
// the teacher's verbosef/dief stderr helpers into leveled structured output.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stderr. verbosity mirrors the repeated
// -v flag: 0 = warn+, 1 = info+, 2+ = debug.
func New(verbosity int) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbosity >= 2:
		level = zapcore.DebugLevel
	case verbosity == 1:
		level = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.CallerKey = ""

	logger, err := cfg.Build()
	if err != nil {
		// zap's own config construction failing means stderr itself is
		// unusable; fall back to the no-op logger rather than panicking
		// out of a logging setup helper.
		return zap.NewNop()
	}
	return logger
}
