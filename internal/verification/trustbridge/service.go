// Package trustbridge fans a cross-verification request out to the
// single-source verifier and aggregates the answers.
package trustbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustboard/internal/platform/config"
	"trustboard/internal/platform/metrics"
	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports"
	dErrors "trustboard/pkg/domain-errors"
	"trustboard/pkg/platform/audit"
	"trustboard/pkg/requestcontext"
)

// MaxQueries bounds the fan-out of a single request.
const MaxQueries = 50

// Verifier is the single-source verifier the bridge fans out to.
type Verifier interface {
	Verify(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, error)
	// Lookup returns a cached result without running the pipeline.
	Lookup(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, bool)
}

// Service is safe for concurrent use.
type Service struct {
	verifier       Verifier
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	clock          func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditor        ports.AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithDefaultTimeout applies to requests that carry no timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// WithMaxTimeout rejects requests that ask for a longer timeout.
func WithMaxTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxTimeout = d
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func New(verifier Verifier, opts ...Option) *Service {
	s := &Service{
		verifier:       verifier,
		defaultTimeout: config.DefaultCrossVerifyTimeout,
		maxTimeout:     config.DefaultMaxCrossVerifyTimeout,
		clock:          time.Now,
		logger:         slog.Default(),
		tracer:         otel.Tracer("trustboard/trustbridge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome is one query's answer as it arrives from the fan-out.
type outcome struct {
	index   int
	result  *models.VerificationResult
	err     error
	elapsed time.Duration
}

// run tracks one request through its lifecycle.
type run struct {
	req     models.CrossVerificationRequest
	start   time.Time
	state   models.RequestState
	steps   []models.AuditStep
	clock   func() time.Time
	results map[int]outcome
}

func (r *run) offset() time.Duration {
	return r.clock().Sub(r.start)
}

func (r *run) step(s models.AuditStep) {
	s.Offset = r.offset()
	r.steps = append(r.steps, s)
}

func (r *run) transition(to models.RequestState) {
	next, err := r.state.Transition(to)
	if err != nil {
		return
	}
	r.step(models.AuditStep{Action: "transition", Success: true, Detail: fmt.Sprintf("%s -> %s", r.state, next)})
	r.state = next
}

// VerifyAll issues every query concurrently, waits for all of them or the
// request timeout, and aggregates what settled according to the failure
// strategy. Only fail-fast returns an error for individual failures.
func (s *Service) VerifyAll(ctx context.Context, req models.CrossVerificationRequest) (*models.CrossVerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "trustbridge.VerifyAll")
	defer span.End()

	req, err := s.prepare(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("request_id", req.ID),
		attribute.Int("queries", len(req.Queries)),
		attribute.String("logic", string(req.Logic)),
		attribute.String("failure_strategy", string(req.FailureStrategy)),
	)

	r := &run{req: req, start: s.clock(), state: models.StatePending, clock: s.clock, results: map[int]outcome{}}
	r.step(models.AuditStep{Action: "start", Success: true,
		Detail: fmt.Sprintf("%d queries, logic=%s, strategy=%s, timeout=%s", len(req.Queries), req.Logic, req.FailureStrategy, req.Timeout)})
	r.transition(models.StateFanningOut)

	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := make(chan outcome, len(req.Queries))
	for i, q := range req.Queries {
		go func() {
			t0 := s.clock()
			res, err := s.verifier.Verify(fanCtx, q)
			ch <- outcome{index: i, result: res, err: err, elapsed: s.clock().Sub(t0)}
		}()
	}

	if err := s.await(ctx, r, ch); err != nil {
		cancel()
		r.transition(models.StateFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cross-verification failed")
		s.metrics.ObserveCrossVerification("failed", r.offset())
		s.emit(ctx, audit.EventCrossVerificationFailed, req, "failed", 0, err)
		s.logger.WarnContext(ctx, "cross-verification failed",
			"request_id", req.ID,
			"strategy", req.FailureStrategy,
			"error", err,
		)
		return nil, err
	}

	result := s.assemble(ctx, r)
	span.SetAttributes(attribute.String("overall", string(result.Overall)))
	s.metrics.ObserveCrossVerification(string(result.Overall), result.Audit.Duration)
	s.emit(ctx, audit.EventCrossVerificationCompleted, req, string(result.Overall), result.Confidence, nil)
	s.logger.InfoContext(ctx, "cross-verification completed",
		"request_id", req.ID,
		"overall", result.Overall,
		"confidence", result.Confidence,
		"settled", result.Stats.Settled,
		"total", result.Stats.TotalQueries,
	)
	return result, nil
}

// await collects outcomes until every query answered, the timeout fires or
// the caller gives up. It returns an error only when the request must fail.
func (s *Service) await(ctx context.Context, r *run, ch <-chan outcome) error {
	timer := time.NewTimer(r.req.Timeout)
	defer timer.Stop()

	for len(r.results) < len(r.req.Queries) {
		select {
		case o := <-ch:
			if err := r.record(o); err != nil {
				return err
			}
		case <-timer.C:
			// Answers already buffered arrived before the deadline.
			if err := r.drain(ch); err != nil {
				return err
			}
			if len(r.results) == len(r.req.Queries) {
				continue
			}
			r.transition(models.StateTimedOut)
			for i, q := range r.req.Queries {
				if _, ok := r.results[i]; !ok {
					r.step(models.AuditStep{Action: "query_timed_out", QueryID: q.ID, Duration: r.req.Timeout})
				}
			}
			if r.req.FailureStrategy == models.FailFast {
				return dErrors.New(dErrors.CodeTimeout, "cross-verification timed out")
			}
			return nil
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "cross-verification cancelled")
		}
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "cross-verification cancelled")
	}
	r.transition(models.StateAggregating)
	return nil
}

// record stores one outcome. Under fail-fast a failed query fails the run.
func (r *run) record(o outcome) error {
	r.results[o.index] = o
	q := r.req.Queries[o.index]
	if o.err != nil {
		r.step(models.AuditStep{Action: "query_failed", QueryID: q.ID, Duration: o.elapsed, Detail: o.err.Error()})
		if r.req.FailureStrategy == models.FailFast {
			return dErrors.Wrap(o.err, dErrors.CodeInternal, fmt.Sprintf("query %s failed", q.ID))
		}
		return nil
	}
	r.step(models.AuditStep{Action: "query_responded", QueryID: q.ID, Source: sourceName(o.result),
		Duration: o.elapsed, Success: o.result.Verified,
		Detail: fmt.Sprintf("verified=%t confidence=%d", o.result.Verified, o.result.Confidence)})
	return nil
}

// drain records every outcome that is ready without blocking.
func (r *run) drain(ch <-chan outcome) error {
	for len(r.results) < len(r.req.Queries) {
		select {
		case o := <-ch:
			if err := r.record(o); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// assemble applies the failure strategy and builds the final result.
func (s *Service) assemble(ctx context.Context, r *run) *models.CrossVerificationResult {
	req := r.req
	stats := models.AggregationStats{TotalQueries: len(req.Queries)}
	responses := make([]models.VerificationResult, 0, len(req.Queries))
	settled := make([]models.VerificationResult, 0, len(req.Queries))

	for i, q := range req.Queries {
		o, answered := r.results[i]
		if answered && o.err == nil {
			stats.Responded++
			responses = append(responses, *o.result)
			settled = append(settled, *o.result)
			continue
		}
		if answered {
			stats.Failed++
		} else {
			stats.TimedOut++
		}
		if req.FailureStrategy != models.Fallback {
			continue
		}

		stats.Substituted++
		if cached, ok := s.verifier.Lookup(ctx, q); ok {
			r.step(models.AuditStep{Action: "substituted_cached", QueryID: q.ID, Source: sourceName(cached), Success: cached.Verified})
			responses = append(responses, *cached)
			settled = append(settled, *cached)
			continue
		}
		reason := "no response before timeout"
		if answered {
			reason = o.err.Error()
		}
		r.step(models.AuditStep{Action: "substituted_default", QueryID: q.ID, Detail: reason})
		responses = append(responses, defaultResult(q, s.clock(), reason))
	}

	agg := Aggregate(settled, req)
	stats.Settled = len(settled)
	var confSum float64
	var rtSum time.Duration
	for _, res := range settled {
		if res.Verified {
			stats.Verified++
		} else {
			stats.NotVerified++
		}
		confSum += float64(res.Confidence)
		rtSum += res.ResponseTime
	}
	if n := len(settled); n > 0 {
		stats.AverageConfidence = round2(confSum / float64(n))
		stats.AverageResponseTime = rtSum / time.Duration(n)
	}

	if r.state == models.StateFanningOut {
		r.transition(models.StateAggregating)
	}
	r.transition(models.StateCompleted)
	end := s.clock()
	r.step(models.AuditStep{Action: "end", Success: true, Duration: end.Sub(r.start),
		Detail: fmt.Sprintf("overall=%s settled=%d/%d", agg.Overall, stats.Settled, stats.TotalQueries)})

	return &models.CrossVerificationResult{
		RequestID:  req.ID,
		Overall:    agg.Overall,
		Confidence: agg.Confidence,
		Consensus:  agg.Consensus,
		Responses:  responses,
		Stats:      stats,
		Risk:       AssessRisk(settled, agg, req),
		Cost:       Cost(responses),
		Audit: models.AuditTrail{
			StartedAt:   r.start,
			CompletedAt: end,
			Duration:    end.Sub(r.start),
			Steps:       r.steps,
		},
		State: r.state,
	}
}

// prepare fills defaults and validates the request.
func (s *Service) prepare(ctx context.Context, req models.CrossVerificationRequest) (models.CrossVerificationRequest, error) {
	if len(req.Queries) == 0 {
		return req, dErrors.New(dErrors.CodeValidation, "at least one query is required")
	}
	if len(req.Queries) > MaxQueries {
		return req, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d queries are allowed", MaxQueries))
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Logic == "" {
		req.Logic = models.LogicCustom
	}
	if !req.Logic.IsValid() {
		return req, dErrors.New(dErrors.CodeValidation, "unknown combination logic")
	}
	if req.FailureStrategy == "" {
		req.FailureStrategy = models.BestEffort
	}
	if !req.FailureStrategy.IsValid() {
		return req, dErrors.New(dErrors.CodeValidation, "unknown failure strategy")
	}
	if req.MinimumConfidence < 0 || req.MinimumConfidence > 100 {
		return req, dErrors.New(dErrors.CodeValidation, "minimum confidence must be between 0 and 100")
	}
	if req.MinimumSources < 0 {
		return req, dErrors.New(dErrors.CodeValidation, "minimum sources must not be negative")
	}
	if req.Timeout <= 0 {
		req.Timeout = s.defaultTimeout
	}
	if req.Timeout > s.maxTimeout {
		return req, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("timeout must not exceed %s", s.maxTimeout))
	}
	for id, w := range req.Weights {
		if w < 0 {
			return req, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("weight for %s must not be negative", id))
		}
	}

	queries := make([]models.VerificationQuery, len(req.Queries))
	seen := make(map[string]struct{}, len(req.Queries))
	now := requestcontext.Now(ctx)
	for i, q := range req.Queries {
		if err := q.Validate(); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("query %d: %s", i, dErrors.MessageOf(err)))
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := seen[q.ID]; dup {
			return req, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate query id %s", q.ID))
		}
		seen[q.ID] = struct{}{}
		if q.RequesterID == "" {
			q.RequesterID = req.RequesterID
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		queries[i] = q
	}
	req.Queries = queries
	return req, nil
}

// defaultResult stands in for a query that produced nothing usable.
func defaultResult(q models.VerificationQuery, now time.Time, reason string) models.VerificationResult {
	return models.VerificationResult{
		QueryID:     q.ID,
		Verified:    false,
		Confidence:  0,
		IssuedAt:    q.CreatedAt,
		RespondedAt: now,
		Source: models.SourceDescriptor{
			OrganizationID: q.OrganizationID,
			BoardID:        q.BoardID,
			Tier:           models.TierBasic,
		},
		Method:     models.MethodDirect,
		Evidence:   []models.Evidence{},
		AuditTrail: []string{"substituted default result: " + reason},
		Privacy:    models.PrivacyDescriptor{DataShared: models.DataSharedNone, Anonymized: q.Anonymous, Encrypted: true},
	}
}

func sourceName(res *models.VerificationResult) string {
	switch {
	case res == nil:
		return ""
	case res.Source.BoardName != "":
		return res.Source.BoardName
	case res.Source.OrganizationName != "":
		return res.Source.OrganizationName
	default:
		return res.Source.OrganizationID
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, req models.CrossVerificationRequest, decision string, confidence float64, cause error) {
	if s.auditor == nil {
		return
	}
	ev := audit.Event{
		Action:      string(event),
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Decision:    decision,
		Confidence:  confidence,
	}
	if cause != nil {
		ev.Reason = cause.Error()
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.metrics.IncrementAuditEmitFailure()
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}
