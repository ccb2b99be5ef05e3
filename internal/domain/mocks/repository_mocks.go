package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/logsink/internal/domain"
)

// MockBatchWriter is a mock implementation of domain.BatchWriter for testing.
type MockBatchWriter struct {
	mu      sync.Mutex
	Batches [][]domain.LogEvent
	Calls   int

	// Fail decides per call (1-based) whether the write fails. Nil means never.
	Fail func(call int) bool
	// Delay is slept before each write returns, honouring ctx.
	Delay time.Duration

	inFlight    int
	MaxInFlight int
	written     chan struct{}
}

// Written returns a channel that receives after every WriteBatch call.
func (m *MockBatchWriter) Written() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.written == nil {
		m.written = make(chan struct{}, 1024)
	}
	return m.written
}

func (m *MockBatchWriter) WriteBatch(ctx context.Context, batch domain.Batch) bool {
	m.mu.Lock()
	m.Calls++
	call := m.Calls
	m.inFlight++
	if m.inFlight > m.MaxInFlight {
		m.MaxInFlight = m.inFlight
	}
	if m.written == nil {
		m.written = make(chan struct{}, 1024)
	}
	written := m.written
	m.mu.Unlock()

	ok := true
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			ok = false
		}
	}
	if m.Fail != nil && m.Fail(call) {
		ok = false
	}

	m.mu.Lock()
	m.inFlight--
	if ok {
		events := make([]domain.LogEvent, 0, batch.Len())
		for _, e := range batch.All() {
			events = append(events, e)
		}
		m.Batches = append(m.Batches, events)
	}
	m.mu.Unlock()

	select {
	case written <- struct{}{}:
	default:
	}
	return ok
}

// Snapshot returns a copy of the successfully written batches.
func (m *MockBatchWriter) Snapshot() [][]domain.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.LogEvent, len(m.Batches))
	copy(out, m.Batches)
	return out
}

// CallCount returns the number of WriteBatch invocations so far.
func (m *MockBatchWriter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockSchemaProvisioner is a mock implementation of domain.SchemaProvisioner.
type MockSchemaProvisioner struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

func (m *MockSchemaProvisioner) Provision(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Err
}

// MockEventSink records emitted events.
type MockEventSink struct {
	mu      sync.Mutex
	Emitted []domain.LogEvent
}

func (m *MockEventSink) Emit(event domain.LogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emitted = append(m.Emitted, event)
}

// Events returns a copy of the emitted events.
func (m *MockEventSink) Events() []domain.LogEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LogEvent, len(m.Emitted))
	copy(out, m.Emitted)
	return out
}
