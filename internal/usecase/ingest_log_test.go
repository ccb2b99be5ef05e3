package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/internal/domain/mocks"
)

func TestIngestLogUseCase_Ingest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Successful Ingestion", func(t *testing.T) {
		sink := &mocks.MockEventSink{}
		uc := NewIngestLogUseCase(sink, logger)
		uc.now = func() time.Time { return fixed }

		event := &domain.LogEvent{
			MessageTemplate: "user {user} logged in",
			Properties:      map[string]any{"user": "bob"},
		}
		require.NoError(t, uc.Ingest(context.Background(), event))

		emitted := sink.Events()
		require.Len(t, emitted, 1)
		require.Equal(t, fixed, emitted[0].Timestamp)
		require.Equal(t, "user bob logged in", emitted[0].RenderedMessage)
	})

	t.Run("Message Only", func(t *testing.T) {
		sink := &mocks.MockEventSink{}
		uc := NewIngestLogUseCase(sink, logger)

		event := &domain.LogEvent{RenderedMessage: "plain", Timestamp: fixed}
		require.NoError(t, uc.Ingest(context.Background(), event))

		emitted := sink.Events()
		require.Len(t, emitted, 1)
		require.Equal(t, "plain", emitted[0].MessageTemplate)
		require.Equal(t, fixed, emitted[0].Timestamp)
	})

	t.Run("Empty Event Rejected", func(t *testing.T) {
		sink := &mocks.MockEventSink{}
		uc := NewIngestLogUseCase(sink, logger)

		err := uc.Ingest(context.Background(), &domain.LogEvent{})
		require.ErrorIs(t, err, ErrEmptyMessage)
		require.Empty(t, sink.Events())
	})
}
