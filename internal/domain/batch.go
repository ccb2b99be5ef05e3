package domain

import "iter"

// Batch is an ordered, immutable snapshot of events destined for one write
// attempt. Events drained into a Batch are never visible in the queue again.
type Batch struct {
	events []LogEvent
}

// NewBatch takes ownership of events. The caller must not keep or mutate the slice.
func NewBatch(events []LogEvent) Batch {
	return Batch{events: events}
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b.events)
}

// Empty returns true if the batch has no events.
func (b Batch) Empty() bool {
	return len(b.events) == 0
}

// At returns the i-th event.
func (b Batch) At(i int) LogEvent {
	return b.events[i]
}

// All iterates over the events in batch order.
func (b Batch) All() iter.Seq2[int, LogEvent] {
	return func(yield func(int, LogEvent) bool) {
		for i, e := range b.events {
			if !yield(i, e) {
				return
			}
		}
	}
}
