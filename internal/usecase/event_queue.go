package usecase

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/V4T54L/logsink/internal/domain"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue limit is reached.
	ErrQueueFull = errors.New("event queue is full")
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("event queue is closed")
)

// EventQueue is the holding area for emitted events awaiting batching.
// It is safe for concurrent producers; every operation holds the lock only
// for a slice append or copy and never waits on the flush path.
type EventQueue struct {
	mu        sync.Mutex
	items     []domain.LogEvent
	limit     int // 0 means unbounded
	threshold int
	closed    bool

	ready chan struct{}
}

// NewEventQueue creates a queue that signals Ready once threshold events are
// waiting. limit caps the number of queued events; 0 disables the cap.
func NewEventQueue(threshold, limit int) *EventQueue {
	if threshold < 1 {
		threshold = 1
	}
	return &EventQueue{
		limit:     limit,
		threshold: threshold,
		ready:     make(chan struct{}, 1),
	}
}

// Enqueue appends an event. It returns ErrQueueFull or ErrQueueClosed when the
// event cannot be accepted; the event is then dropped.
func (q *EventQueue) Enqueue(event domain.LogEvent) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, event)
	reached := len(q.items) >= q.threshold
	q.mu.Unlock()

	if reached {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return nil
}

// Drain removes and returns up to max events in FIFO order. It returns nil
// when the queue is empty.
func (q *EventQueue) Drain(max int) []domain.LogEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max, len(q.items))
	if n <= 0 {
		return nil
	}

	out := make([]domain.LogEvent, n)
	copy(out, q.items[:n])
	clear(q.items[:n])
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return out
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Ready receives when the queue length reaches the threshold.
func (q *EventQueue) Ready() <-chan struct{} {
	return q.ready
}

// Close stops accepting events. Events already queued stay drainable.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Discard drops every queued event and returns how many were dropped.
func (q *EventQueue) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}
