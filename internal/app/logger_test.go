package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	warn := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.True(t, warn.Enabled(ctx, slog.LevelWarn))
	require.False(t, warn.Enabled(ctx, slog.LevelInfo))

	debug := NewLogger(&Config{LogLevel: "debug"})
	require.True(t, debug.Enabled(ctx, slog.LevelDebug))

	// nil config and unknown levels fall back to info
	require.True(t, NewLogger(nil).Enabled(ctx, slog.LevelInfo))
	require.False(t, NewLogger(&Config{LogLevel: "chatty"}).Enabled(ctx, slog.LevelDebug))
}
