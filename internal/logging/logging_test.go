package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ calls int }

func (f *failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (f *failingHandler) Handle(context.Context, slog.Record) error {
	f.calls++
	return errors.New("sink down")
}
func (f *failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }
func (f *failingHandler) WithGroup(string) slog.Handler      { return f }

func TestMultiHandler_FansOutPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingHandler{}
	h := NewMultiHandler(failing, slog.NewJSONHandler(&buf, nil))

	err := slog.New(h).Handler().Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0))
	require.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestMultiHandler_EnabledIfAnySinkIs(t *testing.T) {
	h := NewMultiHandler(&PGHandler{shared: &pgSink{}}, slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestPGHandler_MapsKnownAttrs(t *testing.T) {
	h := &PGHandler{shared: &pgSink{}}
	logger := slog.New(h).With("component", "settings")

	logger.Error("settings load failed",
		"request_id", "req-1",
		"error", errors.New("boom"),
		"latency_ms", 12.6,
		"attempt", 3,
	)

	require.Len(t, h.shared.buffer, 1)
	entry := h.shared.buffer[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "settings load failed", entry.Message)
	assert.Equal(t, "settings", entry.Component)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)
	assert.JSONEq(t, `{"attempt":3}`, string(entry.Extra))
}

func TestPGHandler_IgnoresBelowError(t *testing.T) {
	h := &PGHandler{shared: &pgSink{}}
	slog.New(h).Warn("just a warning")
	assert.Empty(t, h.shared.buffer)
}
