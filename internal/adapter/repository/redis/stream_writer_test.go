package redis

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/logsink/internal/domain"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStreamWriter_WriteBatch(t *testing.T) {
	t.Run("Empty Batch Is Noop", func(t *testing.T) {
		w := NewStreamWriter(unreachableClient(t), "", false, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		require.True(t, w.WriteBatch(context.Background(), domain.NewBatch(nil)))
		require.Equal(t, DefaultStream, w.stream)
	})

	t.Run("Connection Unavailable", func(t *testing.T) {
		var diag bytes.Buffer
		w := NewStreamWriter(unreachableClient(t), "logs", false, slog.New(slog.NewJSONHandler(&diag, nil)))

		batch := domain.NewBatch([]domain.LogEvent{{RenderedMessage: "E1"}, {RenderedMessage: "E2"}})
		require.False(t, w.WriteBatch(context.Background(), batch))
		require.Contains(t, diag.String(), "failed to write log batch")
		require.Error(t, w.Ping(context.Background()))
	})

	t.Run("Unserializable Event Aborts Before Sending", func(t *testing.T) {
		var diag bytes.Buffer
		w := NewStreamWriter(unreachableClient(t), "logs", false, slog.New(slog.NewJSONHandler(&diag, nil)))

		batch := domain.NewBatch([]domain.LogEvent{
			{RenderedMessage: "ok"},
			{RenderedMessage: "bad", Properties: map[string]any{"fn": func() {}}},
		})
		require.False(t, w.WriteBatch(context.Background(), batch))
		require.Contains(t, diag.String(), "row 1")
	})
}
