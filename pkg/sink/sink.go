// Package sink is a batching log sink: events are queued in memory and
// persisted to a datastore in batches, either when BatchSize events are
// waiting or when FlushInterval elapses. Persistence failures are reported on
// a self-diagnostic logger and never reach the code that emitted the event.
package sink

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/V4T54L/logsink/internal/adapter/metrics"
	"github.com/V4T54L/logsink/internal/adapter/pii"
	"github.com/V4T54L/logsink/internal/pkg/selflog"
	"github.com/V4T54L/logsink/internal/usecase"
)

// Option overrides a collaborator of the sink.
type Option func(*settings)

type settings struct {
	writer      BatchWriter
	provisioner SchemaProvisioner
	diag        *slog.Logger
	metrics     *metrics.SinkMetrics
	logger      *slog.Logger
}

// WithWriter replaces the destination's writer. The destination is then not
// opened and no provisioner runs unless WithProvisioner is also given.
func WithWriter(w BatchWriter) Option {
	return func(s *settings) { s.writer = w }
}

// WithProvisioner replaces the schema provisioner.
func WithProvisioner(p SchemaProvisioner) Option {
	return func(s *settings) { s.provisioner = p }
}

// WithDiagnostics sets the self-diagnostic logger. Defaults to stderr.
func WithDiagnostics(l *slog.Logger) Option {
	return func(s *settings) { s.diag = l }
}

// Metrics is the Prometheus instrumentation of a sink. One Metrics may be
// shared by several sinks.
type Metrics = metrics.SinkMetrics

// NewMetrics registers sink metrics with reg.
var NewMetrics = metrics.NewSinkMetrics

// WithMetrics records sink activity into m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithLogger sets the operational logger used for debug output of the flush loop.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Sink is a running batching sink. It is safe for concurrent use.
type Sink struct {
	id        string
	opts      Options
	emitter   *usecase.EmitLogUseCase
	queue     *usecase.EventQueue
	scheduler *usecase.FlushScheduler
	stop      context.CancelFunc
	closer    io.Closer
	diag      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New validates opts, opens the destination, provisions its schema and
// starts the flush loop. Configuration errors are returned before anything
// is opened. Provisioning errors are reported on the diagnostic logger and
// do not prevent construction.
func New(ctx context.Context, opts Options, options ...Option) (*Sink, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	var set settings
	for _, o := range options {
		o(&set)
	}
	if set.diag == nil {
		set.diag = selflog.Default()
	}
	if set.logger == nil {
		set.logger = slog.Default()
	}

	id := uuid.NewString()
	diag := set.diag.With("sink_id", id, "destination", string(opts.Destination))

	var closer io.Closer
	if set.writer == nil {
		dest, err := openDestination(ctx, id, opts, diag)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s destination", opts.Destination)
		}
		set.writer = dest.writer
		closer = dest.closer
		if set.provisioner == nil {
			set.provisioner = dest.provisioner
		}
	}

	if set.provisioner != nil {
		if err := set.provisioner.Provision(ctx); err != nil {
			diag.Error("schema provisioning failed", "error", err, "table", opts.TableName)
		}
	}

	queue := usecase.NewEventQueue(opts.BatchSize, opts.QueueLimit)
	redactor := pii.NewRedactor(opts.RedactProperties, diag)

	s := &Sink{
		id:        id,
		opts:      opts,
		emitter:   usecase.NewEmitLogUseCase(queue, opts.levelSwitch(), redactor, diag, set.metrics),
		queue:     queue,
		scheduler: usecase.NewFlushScheduler(queue, set.writer, opts.BatchSize, opts.FlushInterval, set.logger.With("sink_id", id), set.metrics),
		closer:    closer,
		diag:      diag,
	}

	// The loop outlives ctx, which only bounds construction.
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	s.stop = stop
	go s.scheduler.Run(runCtx)

	return s, nil
}

// ID returns the identifier carried by this sink's diagnostics.
func (s *Sink) ID() string {
	return s.id
}

// Levels returns the level switch consulted by Emit.
func (s *Sink) Levels() *LevelSwitch {
	return s.emitter.Levels()
}

// Emit queues event for persistence. It never blocks on I/O and never fails;
// events below the minimum level, or emitted after Close, are dropped.
func (s *Sink) Emit(event LogEvent) {
	s.emitter.Emit(event)
}

// Close stops accepting events, flushes what is queued and releases the
// destination. The final flush is bounded by ShutdownTimeout and by ctx;
// events still queued when either expires are discarded. Close is idempotent.
func (s *Sink) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close(ctx)
	})
	return s.closeErr
}

func (s *Sink) close(ctx context.Context) error {
	s.queue.Close()
	s.stop()

	timer := time.NewTimer(s.opts.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-s.scheduler.Done():
	case <-timer.C:
		s.abort("shutdown timeout exceeded")
	case <-ctx.Done():
		s.abort("shutdown cancelled")
	}

	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return errors.Wrap(err, "failed to release destination")
	}
	return nil
}

// abortGrace bounds the wait for an in-flight write after its context has
// been cancelled. A writer still running past it is abandoned.
const abortGrace = time.Second

func (s *Sink) abort(reason string) {
	s.scheduler.Abort()

	grace := time.NewTimer(abortGrace)
	defer grace.Stop()
	select {
	case <-s.scheduler.Done():
	case <-grace.C:
		s.diag.Error("in-flight batch write ignored cancellation, abandoning it", "reason", reason)
	}

	if n := s.queue.Discard(); n > 0 {
		s.diag.Warn("discarding unflushed log events", "reason", reason, "count", n)
	}
}
