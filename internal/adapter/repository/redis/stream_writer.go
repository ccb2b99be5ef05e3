package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/logsink/internal/domain"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "log_events"

// StreamWriter implements domain.BatchWriter on top of a Redis Stream. Each
// batch is appended with XADD inside one MULTI/EXEC block, so its entries
// are contiguous and nothing is appended when the transaction never reaches
// EXEC. Redis does not roll back, so a command failing inside EXEC can still
// leave part of a batch in the stream.
type StreamWriter struct {
	client   *redis.Client
	stream   string
	storeUTC bool
	diag     *slog.Logger
}

// NewStreamWriter creates a Redis-backed writer appending to stream.
func NewStreamWriter(client *redis.Client, stream string, storeUTC bool, diag *slog.Logger) *StreamWriter {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamWriter{
		client:   client,
		stream:   stream,
		storeUTC: storeUTC,
		diag:     diag.With("component", "redis_writer", "stream", stream),
	}
}

// WriteBatch appends the batch to the stream. Failures are reported on the
// diagnostic channel and the batch is discarded.
func (w *StreamWriter) WriteBatch(ctx context.Context, batch domain.Batch) bool {
	if batch.Empty() {
		return true
	}
	if err := w.writeBatch(ctx, batch); err != nil {
		w.diag.Error("failed to write log batch", "error", err, "count", batch.Len())
		return false
	}
	return true
}

func (w *StreamWriter) writeBatch(ctx context.Context, batch domain.Batch) error {
	// Encode everything up front: a marshalling failure must abort before
	// anything reaches the server.
	payloads := make([][]byte, 0, batch.Len())
	for i, event := range batch.All() {
		rec, err := event.Record(w.storeUTC)
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal row %d", i)
		}
		payloads = append(payloads, payload)
	}

	_, err := w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, payload := range payloads {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: w.stream,
				Values: map[string]interface{}{"payload": payload},
			})
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to XADD batch to redis stream")
	}
	return nil
}

// Ping checks connectivity; used at startup to report an unreachable server early.
func (w *StreamWriter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return w.client.Ping(ctx).Err()
}

// ReadRecords reads up to count records from the start of the stream.
func (w *StreamWriter) ReadRecords(ctx context.Context, count int64) ([]domain.Record, error) {
	msgs, err := w.client.XRangeN(ctx, w.stream, "-", "+", count).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to XRANGE redis stream")
	}

	records := make([]domain.Record, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			w.diag.Warn("invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			w.diag.Warn("failed to unmarshal record from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
