package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected *zap.SugaredLogger
	}{
		{
			name:     "default_logger",
			ctx:      context.Background(),
			expected: DefaultLogger(),
		},
		{
			name:     "attached_logger",
			ctx:      WithLogger(context.Background(), zap.NewNop().Sugar()),
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := FromContext(test.ctx)
			if got == nil {
				t.Fatalf("calling FromContext, got nil logger")
			}
			if test.expected != nil && got != test.expected {
				t.Errorf("calling FromContext, got: %p, expected: %p", got, test.expected)
			}
		})
	}
}

func TestLevelToZapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zapcore.Level
	}{
		{name: "debug", level: "debug", expected: zapcore.DebugLevel},
		{name: "warning", level: " WARNING ", expected: zapcore.WarnLevel},
		{name: "error", level: "ERROR", expected: zapcore.ErrorLevel},
		{name: "empty", level: "", expected: zapcore.InfoLevel},
		{name: "unknown", level: "verbose", expected: zapcore.InfoLevel},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := levelToZapLevel(test.level); got != test.expected {
				t.Errorf("calling levelToZapLevel, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}
