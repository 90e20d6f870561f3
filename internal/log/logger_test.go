package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestWithCorrelationID_UsesContextValue(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	ctx := ContextWithCorrelationID(context.Background(), "req-123")
	logger.WithCorrelationID(ctx).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["correlation_id"])
}

func TestGetOrGenerateCorrelationID_Generates(t *testing.T) {
	id := GetOrGenerateCorrelationID(context.Background())
	assert.Len(t, id, 36)
}

func TestGetLoggerInstanceFromContext(t *testing.T) {
	var buf bytes.Buffer
	injected := NewLoggerWithWriter(&buf, slog.LevelInfo)
	fallback := NewLoggerWithWriter(&bytes.Buffer{}, slog.LevelInfo)

	ctx := ContextWithLogger(context.Background(), injected)
	assert.Same(t, injected, GetLoggerInstanceFromContext(ctx, fallback))

	var nilCtx context.Context
	assert.Same(t, fallback, GetLoggerInstanceFromContext(nilCtx, fallback))
	assert.NotNil(t, GetLoggerInstanceFromContext(context.Background(), nil))
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}
