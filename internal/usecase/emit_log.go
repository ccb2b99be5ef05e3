package usecase

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/adapter/metrics"
	"github.com/V4T54L/logsink/internal/adapter/pii"
	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/internal/pkg/selflog"
)

const dropReportInterval = 10 * time.Second

// EmitLogUseCase is the producer side of the sink: it filters events by the
// level switch, redacts them and hands them to the event queue. It never
// blocks on the flush path and never reports failure to the caller.
type EmitLogUseCase struct {
	queue    *EventQueue
	levels   *domain.LevelSwitch
	redactor *pii.Redactor
	drops    *selflog.Limited
	metrics  *metrics.SinkMetrics
}

// NewEmitLogUseCase creates the emit path. redactor may be nil.
func NewEmitLogUseCase(queue *EventQueue, levels *domain.LevelSwitch, redactor *pii.Redactor, diag *slog.Logger, m *metrics.SinkMetrics) *EmitLogUseCase {
	if levels == nil {
		levels = domain.NewLevelSwitch(domain.LevelVerbose)
	}
	return &EmitLogUseCase{
		queue:    queue,
		levels:   levels,
		redactor: redactor,
		drops:    selflog.NewLimited(diag.With("component", "event_queue"), dropReportInterval),
		metrics:  m,
	}
}

// Emit queues event unless it is below the minimum level. Events the queue
// cannot accept are dropped and reported on the self-diagnostic channel.
func (uc *EmitLogUseCase) Emit(event domain.LogEvent) {
	if !uc.levels.Enabled(event.Level) {
		uc.metrics.Event("filtered")
		return
	}

	if uc.redactor.Enabled() {
		event, _ = uc.redactor.Redact(event)
	}

	if err := uc.queue.Enqueue(event); err != nil {
		uc.metrics.Event("dropped")
		reason := "full"
		if errors.Is(err, ErrQueueClosed) {
			reason = "closed"
		}
		uc.drops.Report("dropping log event", "reason", reason, "level", event.Level.String())
		return
	}
	uc.metrics.Event("accepted")
}

// Levels returns the switch consulted by Emit.
func (uc *EmitLogUseCase) Levels() *domain.LevelSwitch {
	return uc.levels
}
