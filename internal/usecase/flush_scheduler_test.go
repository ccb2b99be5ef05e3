package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/V4T54L/logsink/internal/domain"
	"github.com/V4T54L/logsink/internal/domain/mocks"
)

// syncBuffer is a bytes.Buffer safe for the scheduler goroutine to write to
// while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type schedulerHarness struct {
	queue     *EventQueue
	scheduler *FlushScheduler
	cancel    context.CancelFunc
}

func startScheduler(t *testing.T, writer domain.BatchWriter, batchSize int, interval time.Duration, diag io.Writer) *schedulerHarness {
	t.Helper()
	if diag == nil {
		diag = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(diag, &slog.HandlerOptions{Level: slog.LevelDebug}))

	q := NewEventQueue(batchSize, 0)
	s := NewFlushScheduler(q, writer, batchSize, interval, logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	t.Cleanup(func() {
		cancel()
		s.Abort()
		<-s.Done()
	})
	return &schedulerHarness{queue: q, scheduler: s, cancel: cancel}
}

func (h *schedulerHarness) emit(t *testing.T, from, to int) {
	t.Helper()
	for i := from; i <= to; i++ {
		require.NoError(t, h.queue.Enqueue(testEvent(i)))
	}
}

func batchMessages(batches [][]domain.LogEvent) [][]string {
	out := make([][]string, len(batches))
	for i, b := range batches {
		out[i] = messages(b)
	}
	return out
}

func TestFlushScheduler_TimeTrigger(t *testing.T) {
	writer := &mocks.MockBatchWriter{}
	h := startScheduler(t, writer, 10, 200*time.Millisecond, nil)

	h.emit(t, 1, 4)

	require.Never(t, func() bool { return writer.CallCount() > 0 }, 100*time.Millisecond, 10*time.Millisecond,
		"no flush may happen before the time trigger when fewer than batchSize events are queued")

	require.Eventually(t, func() bool { return writer.CallCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, [][]string{{"event 1", "event 2", "event 3", "event 4"}}, batchMessages(writer.Snapshot()))
}

func TestFlushScheduler_SizeTrigger(t *testing.T) {
	writer := &mocks.MockBatchWriter{}
	h := startScheduler(t, writer, 3, time.Hour, nil)

	h.emit(t, 1, 7)

	require.Eventually(t, func() bool { return writer.CallCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	h.queue.Close()
	h.cancel()
	<-h.scheduler.Done()

	require.Equal(t, [][]string{
		{"event 1", "event 2", "event 3"},
		{"event 4", "event 5", "event 6"},
		{"event 7"},
	}, batchMessages(writer.Snapshot()))
}

func TestFlushScheduler_SizeThenTimeScenario(t *testing.T) {
	writer := &mocks.MockBatchWriter{}
	h := startScheduler(t, writer, 3, 150*time.Millisecond, nil)

	h.emit(t, 1, 5)

	require.Eventually(t, func() bool { return writer.CallCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, [][]string{
		{"event 1", "event 2", "event 3"},
		{"event 4", "event 5"},
	}, batchMessages(writer.Snapshot()))
}

func TestFlushScheduler_EmptyTickIsNoop(t *testing.T) {
	writer := &mocks.MockBatchWriter{}
	startScheduler(t, writer, 5, 10*time.Millisecond, nil)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 0, writer.CallCount())
}

func TestFlushScheduler_FailedBatchIsDiscarded(t *testing.T) {
	diag := &syncBuffer{}
	writer := &mocks.MockBatchWriter{Fail: func(call int) bool { return call == 1 }}
	h := startScheduler(t, writer, 2, time.Hour, diag)

	h.emit(t, 1, 2)
	require.Eventually(t, func() bool { return writer.CallCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.emit(t, 3, 4)
	require.Eventually(t, func() bool { return writer.CallCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, [][]string{{"event 3", "event 4"}}, batchMessages(writer.Snapshot()),
		"the failed batch must not be retried and the next batch starts clean")
	require.Contains(t, diag.String(), "batch write failed")
}

func TestFlushScheduler_NeverWritesConcurrently(t *testing.T) {
	writer := &mocks.MockBatchWriter{Delay: 5 * time.Millisecond}
	h := startScheduler(t, writer, 5, time.Millisecond, nil)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = h.queue.Enqueue(testEvent(p*100 + i))
			}
		}(p)
	}
	wg.Wait()

	h.queue.Close()
	h.cancel()
	<-h.scheduler.Done()

	total := 0
	for _, b := range writer.Snapshot() {
		require.LessOrEqual(t, len(b), 5)
		total += len(b)
	}
	require.Equal(t, 200, total)
	require.Equal(t, 1, writer.MaxInFlight)
}

func TestFlushScheduler_ShutdownFlushesRemaining(t *testing.T) {
	writer := &mocks.MockBatchWriter{}
	h := startScheduler(t, writer, 100, time.Hour, nil)

	h.emit(t, 1, 3)
	h.queue.Close()
	h.cancel()

	select {
	case <-h.scheduler.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Equal(t, [][]string{{"event 1", "event 2", "event 3"}}, batchMessages(writer.Snapshot()))
}

func TestFlushScheduler_AbortBoundsShutdown(t *testing.T) {
	writer := &mocks.MockBatchWriter{Delay: time.Hour}
	h := startScheduler(t, writer, 100, time.Hour, nil)

	h.emit(t, 1, 3)
	h.queue.Close()
	h.cancel()

	require.Eventually(t, func() bool { return h.scheduler.State() == StateFlushing }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-h.scheduler.Done():
		t.Fatal("scheduler finished while the write was still hanging")
	case <-time.After(50 * time.Millisecond):
	}

	h.scheduler.Abort()
	select {
	case <-h.scheduler.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("abort did not end the final flush")
	}
	require.Empty(t, writer.Snapshot())
}
