package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/V4T54L/logsink/internal/adapter/metrics"
	"github.com/V4T54L/logsink/internal/domain"
)

const (
	DefaultBatchSize     = 100
	MaxBatchSize         = 1000
	DefaultFlushInterval = 10 * time.Second
)

// SchedulerState is the state of a FlushScheduler.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateFlushing
)

func (s SchedulerState) String() string {
	if s == StateFlushing {
		return "flushing"
	}
	return "idle"
}

// FlushScheduler owns the accumulate→flush cycle of one sink. A single
// goroutine (Run) drives it, so the writer is never invoked concurrently with
// itself; ticks that fire while a flush is in progress are coalesced.
type FlushScheduler struct {
	accumulator *BatchAccumulator
	ready       <-chan struct{}
	writer      domain.BatchWriter
	batchSize   int
	interval    time.Duration
	logger      *slog.Logger
	metrics     *metrics.SinkMetrics

	state atomic.Int32

	// writeCtx is independent of the loop context: stopping the loop must not
	// cut an in-flight write short. Abort cancels it.
	writeCtx context.Context
	abort    context.CancelFunc
	done     chan struct{}
}

// NewFlushScheduler creates a scheduler flushing queue into writer.
func NewFlushScheduler(queue *EventQueue, writer domain.BatchWriter, batchSize int, interval time.Duration, logger *slog.Logger, m *metrics.SinkMetrics) *FlushScheduler {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	writeCtx, abort := context.WithCancel(context.Background())
	return &FlushScheduler{
		accumulator: NewBatchAccumulator(queue),
		ready:       queue.Ready(),
		writer:      writer,
		batchSize:   batchSize,
		interval:    interval,
		logger:      logger.With("component", "flush_scheduler"),
		metrics:     m,
		writeCtx:    writeCtx,
		abort:       abort,
		done:        make(chan struct{}),
	}
}

// Run drives the flush loop until ctx is cancelled, then performs one final
// flush of whatever is still queued. It closes Done on return.
func (s *FlushScheduler) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("flush scheduler started", "batch_size", s.batchSize, "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("flush scheduler stopping", "pending", s.accumulator.Pending())
			s.flushPending()
			return
		case <-s.ready:
			if s.flushFull(ctx) > 0 {
				ticker.Reset(s.interval)
			}
		case <-ticker.C:
			s.flushPending()
		}
	}
}

// Done is closed once Run has returned.
func (s *FlushScheduler) Done() <-chan struct{} {
	return s.done
}

// Abort cancels the in-flight write, if any, and makes the remaining final
// flush give up.
func (s *FlushScheduler) Abort() {
	s.abort()
}

// State reports whether a flush is currently in progress.
func (s *FlushScheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// flushFull writes full batches while the size trigger holds.
func (s *FlushScheduler) flushFull(ctx context.Context) int {
	flushed := 0
	for ctx.Err() == nil && s.writeCtx.Err() == nil && s.accumulator.SizeReached(s.batchSize) {
		s.flush(s.accumulator.DrainReady(s.batchSize))
		flushed++
	}
	return flushed
}

// flushPending writes everything that was queued when it started, in batches
// of batchSize with a possible final short batch. An empty queue is a no-op.
func (s *FlushScheduler) flushPending() {
	remaining := s.accumulator.Pending()
	for remaining > 0 {
		if s.writeCtx.Err() != nil {
			return
		}
		batch := s.accumulator.DrainReady(s.batchSize)
		if batch.Empty() {
			return
		}
		s.flush(batch)
		remaining -= batch.Len()
	}
}

func (s *FlushScheduler) flush(batch domain.Batch) bool {
	if batch.Empty() {
		return true
	}

	s.state.Store(int32(StateFlushing))
	defer s.state.Store(int32(StateIdle))

	ctx, span := otel.Tracer("logsink").Start(s.writeCtx, "FlushBatch")
	span.SetAttributes(attribute.Int("batch.size", batch.Len()))
	defer span.End()

	start := time.Now()
	ok := s.writer.WriteBatch(ctx, batch)
	took := time.Since(start)

	s.metrics.Flush(batch.Len(), took, ok)
	s.metrics.Depth(s.accumulator.Pending())

	if !ok {
		span.SetStatus(codes.Error, "batch write failed")
		s.logger.Warn("batch write failed, discarding events", "count", batch.Len(), "duration_ms", took.Milliseconds())
		return false
	}
	s.logger.Debug("flushed log batch", "count", batch.Len(), "duration_ms", took.Milliseconds())
	return true
}
