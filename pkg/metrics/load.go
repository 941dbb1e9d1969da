package metrics

import "github.com/prometheus/client_golang/prometheus"

// LoadMetrics tracks the simulated shopper sessions.
type LoadMetrics struct {
	orders    prometheus.Counter
	conflicts prometheus.Counter
	failures  prometheus.Counter
	restocks  prometheus.Counter
}

// NewLoadMetrics registers harness metrics on the provided registerer.
func NewLoadMetrics(reg prometheus.Registerer) *LoadMetrics {
	if reg == nil {
		return &LoadMetrics{}
	}
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "load_orders_completed_total",
		Help: "Orders settled by simulated sessions.",
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "load_reservation_conflicts_total",
		Help: "Reserve calls rejected for insufficient stock.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "load_failed_operations_total",
		Help: "Operations that failed after exhausting retries.",
	})
	restocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "load_restocks_total",
		Help: "Restock checks that topped up at least one item.",
	})
	reg.MustRegister(orders, conflicts, failures, restocks)
	return &LoadMetrics{orders: orders, conflicts: conflicts, failures: failures, restocks: restocks}
}

func (m *LoadMetrics) IncOrder() {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Inc()
}

func (m *LoadMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *LoadMetrics) IncFailure() {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}

func (m *LoadMetrics) IncRestock() {
	if m == nil || m.restocks == nil {
		return
	}
	m.restocks.Inc()
}
