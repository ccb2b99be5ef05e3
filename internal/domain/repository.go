package domain

import "context"

// BatchWriter performs the durable write of a closed batch.
// Implementations own their connection for the duration of the call, write
// every event in order, and commit all-or-nothing. They never return errors:
// failures are reported on the self-diagnostic channel and surface only as a
// false result. A failed batch is not retried.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch Batch) bool
}

// SchemaProvisioner ensures the destination storage exists.
// It is invoked once while the sink is constructed. An object that already
// exists counts as success.
type SchemaProvisioner interface {
	Provision(ctx context.Context) error
}

// EventSink accepts events from a logging front-end. Emit never blocks on the
// flush path and never reports failure to the caller.
type EventSink interface {
	Emit(event LogEvent)
}
