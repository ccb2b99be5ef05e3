package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/logsink/internal/domain/mocks"
)

func TestHandler(t *testing.T) {
	t.Run("Message Template And Properties", func(t *testing.T) {
		rec := &mocks.MockEventSink{}
		logger := slog.New(NewHandler(rec, nil))

		logger.Info("user {user} logged in after {elapsed}", "user", "alice", "elapsed", 2*time.Second, "attempts", 3)

		events := rec.Events()
		require.Len(t, events, 1)
		e := events[0]
		require.Equal(t, LevelInformation, e.Level)
		require.Equal(t, "user {user} logged in after {elapsed}", e.MessageTemplate)
		require.Equal(t, "user alice logged in after 2s", e.RenderedMessage)
		require.Equal(t, map[string]any{"user": "alice", "elapsed": "2s", "attempts": int64(3)}, e.Properties)
		require.False(t, e.Timestamp.IsZero())
	})

	t.Run("Error Attribute Becomes Exception", func(t *testing.T) {
		rec := &mocks.MockEventSink{}
		logger := slog.New(NewHandler(rec, nil))

		logger.Error("write failed", "error", errors.New("disk full"), "path", "/tmp/x")

		e := rec.Events()[0]
		require.Equal(t, LevelError, e.Level)
		require.Equal(t, "disk full", e.Exception)
		require.Equal(t, map[string]any{"path": "/tmp/x"}, e.Properties)
	})

	t.Run("Groups Nest Properties", func(t *testing.T) {
		rec := &mocks.MockEventSink{}
		logger := slog.New(NewHandler(rec, nil)).
			With("service", "api").
			WithGroup("req").
			With("method", "GET")

		logger.Warn("slow", slog.Group("timing", slog.Int("ms", 900)), "path", "/x")

		e := rec.Events()[0]
		require.Equal(t, map[string]any{
			"service": "api",
			"req": map[string]any{
				"method": "GET",
				"path":   "/x",
				"timing": map[string]any{"ms": int64(900)},
			},
		}, e.Properties)
	})

	t.Run("No Attributes Means No Properties", func(t *testing.T) {
		rec := &mocks.MockEventSink{}
		slog.New(NewHandler(rec, nil)).Info("plain")
		require.Nil(t, rec.Events()[0].Properties)
	})

	t.Run("Enabled Follows Level Switch", func(t *testing.T) {
		rec := &mocks.MockEventSink{}
		levels := NewLevelSwitch(LevelWarning)
		h := NewHandler(rec, levels)

		require.False(t, h.Enabled(context.Background(), slog.LevelInfo))
		require.True(t, h.Enabled(context.Background(), slog.LevelError))

		slog.New(h).Info("filtered")
		require.Empty(t, rec.Events())

		levels.Set(LevelDebug)
		require.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	})
}
