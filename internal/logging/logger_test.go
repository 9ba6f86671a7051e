package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want zapcore.Level
	}{
		{"debug", "", zapcore.DebugLevel},
		{"WARN", "", zapcore.WarnLevel},
		{"nonsense", "", zapcore.InfoLevel},
		{"", "error", zapcore.ErrorLevel},
		{"", "", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestGetLoggerShared(t *testing.T) {
	first := GetLogger()
	InitLogger("debug")
	assert.Same(t, first, GetLogger())
	SyncLogger()
}
