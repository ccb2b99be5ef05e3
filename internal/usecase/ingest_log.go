package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/domain"
)

// ErrEmptyMessage is returned for an ingested event with neither a template nor a message.
var ErrEmptyMessage = errors.New("log event has no message")

// IngestLogUseCase handles events arriving from an external front-end (such
// as the HTTP ingest endpoint) before they are emitted into the sink.
type IngestLogUseCase struct {
	sink   domain.EventSink
	logger *slog.Logger
	now    func() time.Time
}

// NewIngestLogUseCase creates a new IngestLogUseCase.
func NewIngestLogUseCase(sink domain.EventSink, logger *slog.Logger) *IngestLogUseCase {
	return &IngestLogUseCase{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest validates and completes an event, then emits it.
func (uc *IngestLogUseCase) Ingest(ctx context.Context, event *domain.LogEvent) error {
	if event.MessageTemplate == "" && event.RenderedMessage == "" {
		return ErrEmptyMessage
	}

	// 1. Fill in what the producer left out
	if event.Timestamp.IsZero() {
		event.Timestamp = uc.now()
	}
	if event.MessageTemplate == "" {
		event.MessageTemplate = event.RenderedMessage
	}
	if event.RenderedMessage == "" {
		event.RenderedMessage = domain.RenderTemplate(event.MessageTemplate, event.Properties)
	}

	// 2. Hand over to the sink; from here on failures are the sink's to report
	uc.sink.Emit(*event)
	return nil
}
