package logging_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), in)
	}
}

func TestFromConfig(t *testing.T) {
	assert.NotNil(t, logging.FromConfig("debug", "json"))
	assert.NotNil(t, logging.FromConfig("info", "text"))
	assert.False(t, logging.FromConfig("error", "text").Enabled(context.Background(), slog.LevelWarn))
}
