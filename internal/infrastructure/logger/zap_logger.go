package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production logger writing to stderr. Encoding is "json"
// or "console"; anything else falls back to json.
func NewLogger(level, encoding string) (*zap.Logger, error) {
	return build(level, encoding, nil)
}

// NewFileLogger additionally writes every entry to path, so a replay or scan
// run leaves its own log next to the results.
func NewFileLogger(path, level, encoding string) (*zap.Logger, error) {
	return build(level, encoding, []string{path})
}

func build(level, encoding string, extra []string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	// Parse level
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		l = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(l)

	if encoding == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = append([]string{"stderr"}, extra...)

	return config.Build()
}
