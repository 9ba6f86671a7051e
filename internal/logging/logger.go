// Package logging holds the process-wide structured logger.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sharedLogger *zap.SugaredLogger
	mu           sync.Mutex
)

// InitLogger builds the shared logger. level is a zap level name; when empty
// LOG_LEVEL is consulted, then info is used. Later calls are no-ops.
func InitLogger(level string) {
	mu.Lock()
	defer mu.Unlock()

	if sharedLogger != nil {
		return
	}
	sharedLogger = newLogger(level).Sugar()
}

// GetLogger returns the shared logger, initializing it from the environment if needed
func GetLogger() *zap.SugaredLogger {
	mu.Lock()
	if sharedLogger != nil {
		defer mu.Unlock()
		return sharedLogger
	}
	mu.Unlock()

	InitLogger("")
	return GetLogger()
}

// SyncLogger flushes buffered entries
func SyncLogger() {
	mu.Lock()
	defer mu.Unlock()
	if sharedLogger != nil {
		_ = sharedLogger.Sync()
	}
}

// ParseLevel returns the level for name, falling back to info
func ParseLevel(name string) zapcore.Level {
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	if name != "" {
		if parsed, err := zapcore.ParseLevel(name); err == nil {
			return parsed
		}
	}
	return zapcore.InfoLevel
}

func newLogger(level string) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		MessageKey:     "M",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.0000"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	// stderr keeps the terminal tracker's stdout clean
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		ParseLevel(level),
	)

	return zap.New(core)
}
