package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TxMetrics records executor behavior per operation label. Retry and
// exhaustion rates are the primary signal for contention tuning under load.
type TxMetrics struct {
	attempts  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewTxMetrics registers the transaction metrics on the provided registerer.
// A nil registerer yields a no-op collector, which tests rely on.
func NewTxMetrics(reg prometheus.Registerer) *TxMetrics {
	if reg == nil {
		return &TxMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_attempts_total",
		Help: "Transaction attempts, including retries.",
	}, []string{"label"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_retries_total",
		Help: "Transaction attempts retried after a transient failure.",
	}, []string{"label"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_retries_exhausted_total",
		Help: "Logical operations that failed after exhausting all retries.",
	}, []string{"label"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_commit_duration_seconds",
		Help:    "Duration of successfully committed transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"label"})
	reg.MustRegister(attempts, retries, exhausted, duration)
	return &TxMetrics{
		attempts:  attempts,
		retries:   retries,
		exhausted: exhausted,
		duration:  duration,
	}
}

// IncAttempt counts one transaction attempt for the label.
func (m *TxMetrics) IncAttempt(label string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(label)).Inc()
}

// IncRetry counts one retried attempt for the label.
func (m *TxMetrics) IncRetry(label string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(label)).Inc()
}

// IncExhausted counts one terminally failed logical operation.
func (m *TxMetrics) IncExhausted(label string) {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.WithLabelValues(normalizeLabel(label)).Inc()
}

// ObserveCommit records the duration of a committed transaction.
func (m *TxMetrics) ObserveCommit(label string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(label)).Observe(duration.Seconds())
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
