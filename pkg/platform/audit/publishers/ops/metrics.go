package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for operational audit tracking.
// A nil *Metrics records nothing.
type Metrics struct {
	Tracked               prometheus.Counter
	Sampled               prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	PersistFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// NewMetrics registers the ops metrics on reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_audit_ops_tracked_total",
			Help: "Operational audit events handed to the buffered publisher",
		}),
		Sampled: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_audit_ops_sampled_total",
			Help: "Operational audit events dropped by sampling",
		}),
		CircuitBreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_audit_ops_circuit_breaker_dropped_total",
			Help: "Operational audit events dropped while the circuit was open",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_audit_ops_persist_failures_total",
			Help: "Operational audit events the buffered publisher refused",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "trustboard_audit_ops_circuit_breaker_state",
			Help: "Ops audit circuit state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) IncTracked() {
	if m == nil {
		return
	}
	m.Tracked.Inc()
}

func (m *Metrics) IncSampled() {
	if m == nil {
		return
	}
	m.Sampled.Inc()
}

func (m *Metrics) IncCircuitBreakerDropped() {
	if m == nil {
		return
	}
	m.CircuitBreakerDropped.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
		return
	}
	m.CircuitBreakerState.Set(0)
}
