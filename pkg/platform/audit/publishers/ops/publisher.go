// Package ops publishes operational audit events on a best-effort basis.
//
// Events are sampled per action, then handed to a buffered emitter. Repeated
// refusals from the emitter open a circuit, and while it is open events are
// dropped without touching the emitter. Dropping is counted, never returned
// as an error.
package ops

import (
	"context"
	"log/slog"

	audit "trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/circuit"
)

// Emitter is the downstream sink, normally the async publisher.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Publisher struct {
	next    Emitter
	sampler *Sampler
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		if s != nil {
			p.sampler = s
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New wraps next. Without options every event is kept and the breaker uses
// circuit defaults.
func New(next Emitter, opts ...Option) *Publisher {
	p := &Publisher{
		next:    next,
		sampler: NewSampler(1),
		breaker: circuit.New("audit-ops"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit forwards event unless it is sampled out or the circuit is open.
// Errors from the emitter are returned so callers can count them.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if !p.sampler.ShouldSample(event.Action) {
		p.metrics.IncSampled()
		return nil
	}
	if !p.breaker.Allow() {
		p.metrics.IncCircuitBreakerDropped()
		return nil
	}

	if err := p.next.Emit(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.SetCircuitBreakerState(true)
			p.logger.WarnContext(ctx, "ops audit circuit opened",
				"breaker", p.breaker.Name(),
				"action", event.Action,
				"error", err,
			)
		}
		return err
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetCircuitBreakerState(false)
		p.logger.InfoContext(ctx, "ops audit circuit closed", "breaker", p.breaker.Name())
	}
	p.metrics.IncTracked()
	return nil
}
