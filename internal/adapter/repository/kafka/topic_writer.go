package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"github.com/V4T54L/logsink/internal/domain"
)

// Producer is the part of *kafka.Writer the topic writer uses.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TopicWriter implements domain.BatchWriter by publishing each batch to a
// Kafka topic in one WriteMessages call. Every message of a sink carries the
// same key, so a sink's events land on one partition in emission order.
type TopicWriter struct {
	producer Producer
	key      []byte
	storeUTC bool
	diag     *slog.Logger
}

// NewProducer builds a kafka-go writer for a comma-separated broker list.
// The writer's own batching is sized so a full sink batch is sent as one
// produce request.
func NewProducer(brokers, topic string, maxBatch int) *kafka.Writer {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              maxBatch,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NewTopicWriter creates a Kafka-backed writer. key partitions the sink's
// messages; it is usually the sink id.
func NewTopicWriter(producer Producer, key string, storeUTC bool, diag *slog.Logger) *TopicWriter {
	return &TopicWriter{
		producer: producer,
		key:      []byte(key),
		storeUTC: storeUTC,
		diag:     diag.With("component", "kafka_writer"),
	}
}

// WriteBatch publishes the batch. Failures are reported on the diagnostic
// channel and the batch is discarded.
func (w *TopicWriter) WriteBatch(ctx context.Context, batch domain.Batch) bool {
	if batch.Empty() {
		return true
	}
	msgs, err := w.messages(batch)
	if err == nil {
		err = w.producer.WriteMessages(ctx, msgs...)
		err = errors.Wrap(err, "failed to publish batch to kafka")
	}
	if err != nil {
		w.diag.Error("failed to write log batch", "error", err, "count", batch.Len())
		return false
	}
	return true
}

// Close flushes and closes the producer.
func (w *TopicWriter) Close() error {
	return w.producer.Close()
}

func (w *TopicWriter) messages(batch domain.Batch) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, batch.Len())
	for i, event := range batch.All() {
		rec, err := event.Record(w.storeUTC)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal row %d", i)
		}
		msgs = append(msgs, kafka.Message{
			Key:   w.key,
			Value: value,
			Time:  event.Timestamp,
			Headers: []kafka.Header{
				{Key: "level", Value: []byte(rec.Level)},
			},
		})
	}
	return msgs, nil
}
