// Package logger adapts zap to the ports.Logger interface.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger routes application log calls to a zap.Logger.
type ZapLogger struct {
	zl *zap.Logger
}

// New builds a logger writing to stderr. Verbose switches to a development
// console encoder at debug level; otherwise only warnings and errors are
// emitted as JSON.
func New(verbose bool) *ZapLogger {
	var config zap.Config
	if verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	zl, err := config.Build()
	if err != nil {
		return NewNop()
	}
	return &ZapLogger{zl: zl}
}

// NewNop discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{zl: zap.NewNop()}
}

// Wrap adopts an existing zap logger.
func Wrap(zl *zap.Logger) *ZapLogger {
	if zl == nil {
		return NewNop()
	}
	return &ZapLogger{zl: zl}
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug(msg, toFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info(msg, toFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn(msg, toFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.zl.Error(msg, append(toFields(fields), zap.Error(err))...)
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}

func toFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}
	return out
}
