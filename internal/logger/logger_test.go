package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, parseLevel(in), in)
	}
}

func TestWithContextFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", true)

	require.Same(t, Get(), WithContext(context.Background()))

	scoped := With("request_id", "abc")
	ctx := IntoContext(context.Background(), scoped)
	WithContext(ctx).Info("hello")

	require.Contains(t, buf.String(), `"request_id":"abc"`)
	require.Contains(t, buf.String(), `"msg":"hello"`)
}
