package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	circuitStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resilience_circuit_state",
		Help: "Circuit breaker state per operation (0=closed, 1=half-open, 2=open).",
	}, []string{"operation"})

	bulkheadActiveGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resilience_bulkhead_active",
		Help: "Active in-flight operations per bulkhead.",
	}, []string{"operation"})

	bulkheadQueuedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "resilience_bulkhead_queued",
		Help: "Queued callers waiting on a bulkhead slot.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(circuitStateGauge, bulkheadActiveGauge, bulkheadQueuedGauge)
}

// ObserveMetrics samples every registered breaker/bulkhead into the
// package's Prometheus gauges. Call periodically (e.g. from the httpapi
// /metrics handler's scrape path or a ticker) rather than on every call,
// since Execute is on the hot path.
func (e *Executor) ObserveMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, cb := range e.breakers {
		var v float64
		switch cb.State() {
		case StateClosed:
			v = 0
		case StateHalfOpen:
			v = 1
		case StateOpen:
			v = 2
		}
		circuitStateGauge.WithLabelValues(name).Set(v)
	}
	for name, bh := range e.bulkheads {
		m := bh.Metrics()
		bulkheadActiveGauge.WithLabelValues(name).Set(float64(m.Active))
		bulkheadQueuedGauge.WithLabelValues(name).Set(float64(m.Queued))
	}
}
