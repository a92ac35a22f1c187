package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the verification engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Verifications        *prometheus.CounterVec
	VerificationDuration prometheus.Histogram
	CacheLookups         *prometheus.CounterVec
	CoalescedRequests    prometheus.Counter
	InFlight             prometheus.Gauge
	CrossVerifications   *prometheus.CounterVec
	CrossVerifyDuration  prometheus.Histogram
	GatewayRequests      *prometheus.CounterVec
	AuditEmitFailures    prometheus.Counter
}

// New creates and registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustboard_verifications_total",
			Help: "Single verifications by outcome",
		}, []string{"outcome"}),
		VerificationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustboard_verification_duration_seconds",
			Help:    "Time spent answering a single verification",
			Buckets: prometheus.DefBuckets,
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustboard_result_cache_lookups_total",
			Help: "Result cache lookups by result",
		}, []string{"result"}),
		CoalescedRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_coalesced_requests_total",
			Help: "Verifications that joined an in-flight computation",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "trustboard_inflight_computations",
			Help: "Distinct fingerprints currently being computed",
		}),
		CrossVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustboard_cross_verifications_total",
			Help: "Cross-verifications by overall result",
		}, []string{"overall"}),
		CrossVerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustboard_cross_verification_duration_seconds",
			Help:    "Time spent answering a cross-verification",
			Buckets: prometheus.DefBuckets,
		}),
		GatewayRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trustboard_gateway_requests_total",
			Help: "Trust-source gateway calls by operation and status",
		}, []string{"operation", "status"}),
		AuditEmitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "trustboard_audit_emit_failures_total",
			Help: "Audit events that could not be emitted",
		}),
	}
}

func (m *Metrics) ObserveVerification(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
	m.VerificationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementCacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrementCoalesced() {
	if m == nil {
		return
	}
	m.CoalescedRequests.Inc()
}

func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.InFlight.Set(float64(n))
}

func (m *Metrics) ObserveCrossVerification(overall string, d time.Duration) {
	if m == nil {
		return
	}
	m.CrossVerifications.WithLabelValues(overall).Inc()
	m.CrossVerifyDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementGatewayRequest(operation, status string) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) IncrementAuditEmitFailure() {
	if m == nil {
		return
	}
	m.AuditEmitFailures.Inc()
}
