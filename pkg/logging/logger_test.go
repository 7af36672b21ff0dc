package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env       string
		level     string
		wantLevel zapcore.Level
	}{
		{"local", "", zapcore.InfoLevel},
		{"production", "debug", zapcore.DebugLevel},
		{"production", "WARN", zapcore.WarnLevel},
	}

	for _, tt := range tests {
		logger, err := NewLogger(tt.env, tt.level)
		if err != nil {
			t.Fatalf("NewLogger(%q, %q) failed: %v", tt.env, tt.level, err)
		}
		if !logger.Core().Enabled(tt.wantLevel) {
			t.Errorf("NewLogger(%q, %q): level %v not enabled", tt.env, tt.level, tt.wantLevel)
		}
		if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
			t.Errorf("NewLogger(%q, %q): level below %v unexpectedly enabled", tt.env, tt.level, tt.wantLevel)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("production", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
