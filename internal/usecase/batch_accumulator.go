package usecase

import "github.com/V4T54L/logsink/internal/domain"

// BatchAccumulator closes batches out of the event queue. It runs no timer of
// its own: the FlushScheduler calls it on every tick or size wake-up.
type BatchAccumulator struct {
	queue *EventQueue
}

// NewBatchAccumulator creates an accumulator draining queue.
func NewBatchAccumulator(queue *EventQueue) *BatchAccumulator {
	return &BatchAccumulator{queue: queue}
}

// SizeReached reports whether at least batchSize events are waiting.
func (a *BatchAccumulator) SizeReached(batchSize int) bool {
	return a.queue.Len() >= batchSize
}

// DrainReady closes a batch of up to batchSize events. The batch is empty when
// nothing is queued.
func (a *BatchAccumulator) DrainReady(batchSize int) domain.Batch {
	return domain.NewBatch(a.queue.Drain(batchSize))
}

// Pending returns the number of events not yet drained.
func (a *BatchAccumulator) Pending() int {
	return a.queue.Len()
}
