// Package compliance provides the synchronous audit publisher for verdicts
// handed to third parties.
//
// Emit writes straight to the durable store and returns only once the write
// succeeded or failed. A failure is reported to the caller; nothing is
// buffered or dropped.
//
// Use for: verification_completed, cross_verification_completed
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "trustboard/pkg/platform/audit"
)

// ErrInvalidEvent is returned for events this publisher must not record.
var ErrInvalidEvent = errors.New("invalid compliance event")

// Publisher is safe for concurrent use when the store is.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Publisher)

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

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a compliance publisher. The store should be the outbox or
// Kafka store so verdicts survive a restart.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates event and writes it synchronously.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := p.now()

	if event.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidEvent)
	}
	if audit.AuditEvent(event.Action).Category() != audit.CategoryCompliance {
		return fmt.Errorf("%w: %s is not a compliance action", ErrInvalidEvent, event.Action)
	}
	if event.QueryID == "" && event.RequestID == "" {
		return fmt.Errorf("%w: %s needs a query or request id", ErrInvalidEvent, event.Action)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = start
	}
	event.Category = audit.CategoryCompliance

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "compliance audit failed",
				"action", event.Action,
				"query_id", event.QueryID,
				"request_id", event.RequestID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(p.now().Sub(start))
	p.metrics.IncEventsEmitted()
	return nil
}
