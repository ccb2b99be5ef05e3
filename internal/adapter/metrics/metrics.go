package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SinkMetrics holds all Prometheus metrics for one sink instance.
// A nil *SinkMetrics is valid and records nothing.
type SinkMetrics struct {
	EventsTotal   *prometheus.CounterVec
	BatchesTotal  *prometheus.CounterVec
	BatchSize     prometheus.Histogram
	FlushDuration prometheus.Histogram
	QueueDepth    prometheus.Gauge
}

// NewSinkMetrics initializes the metrics and registers them with reg.
func NewSinkMetrics(reg prometheus.Registerer) *SinkMetrics {
	factory := promauto.With(reg)
	return &SinkMetrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logsink",
			Subsystem: "queue",
			Name:      "events_total",
			Help:      "Total number of emitted events by status.",
		}, []string{"status"}), // status: accepted, filtered, dropped
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logsink",
			Subsystem: "flush",
			Name:      "batches_total",
			Help:      "Total number of batch write attempts by status.",
		}, []string{"status"}), // status: success, failure
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logsink",
			Subsystem: "flush",
			Name:      "batch_size",
			Help:      "Number of events per flushed batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logsink",
			Subsystem: "flush",
			Name:      "duration_seconds",
			Help:      "Time spent in a single batch write.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "logsink",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of events waiting to be flushed.",
		}),
	}
}

// Event counts one emitted event with the given status.
func (m *SinkMetrics) Event(status string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(status).Inc()
}

// Flush records the outcome of one batch write.
func (m *SinkMetrics) Flush(size int, took time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.BatchSize.Observe(float64(size))
	m.FlushDuration.Observe(took.Seconds())
}

// Depth sets the current queue depth.
func (m *SinkMetrics) Depth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
