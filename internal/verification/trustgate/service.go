// Package trustgate answers a single verification query: it serves cached
// results, coalesces identical in-flight queries and otherwise runs the
// analyze, discover, collect and score pipeline.
package trustgate

import (
	"context"
	"errors"
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
	"trustboard/internal/verification/cache"
	"trustboard/internal/verification/collector"
	"trustboard/internal/verification/inflight"
	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports"
	dErrors "trustboard/pkg/domain-errors"
	"trustboard/pkg/platform/audit"
	"trustboard/pkg/requestcontext"
)

// ErrPipelineFailure marks an unexpected failure inside the pipeline.
var ErrPipelineFailure = errors.New("verification pipeline failed")

type Analyzer interface {
	Analyze(query string) models.QueryAnalysis
}

type Discoverer interface {
	Discover(ctx context.Context, q models.VerificationQuery, analysis models.QueryAnalysis) []models.VerificationSource
}

type EvidenceCollector interface {
	Collect(ctx context.Context, q models.VerificationQuery, sources []models.VerificationSource) collector.Collection
}

type Scorer interface {
	Score(evidence []models.Evidence, analysis models.QueryAnalysis) int
}

// ResultCache returns cache.ErrNotFound on a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.VerificationResult, error)
	Set(ctx context.Context, key string, result *models.VerificationResult, ttl time.Duration) error
}

// Pipeline groups the stages run on a cache miss.
type Pipeline struct {
	Analyzer  Analyzer
	Discovery Discoverer
	Collector EvidenceCollector
	Scorer    Scorer
}

// Service is safe for concurrent use. The cache and in-flight registry are
// owned by the caller and may be shared with other services.
type Service struct {
	pipeline Pipeline
	cache    ResultCache
	flights  *inflight.Registry[*models.VerificationResult]
	ttl      time.Duration
	clock    func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  ports.AuditPublisher
	tracer   trace.Tracer
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

// WithCacheTTL sets how long successful results are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

func New(p Pipeline, resultCache ResultCache, flights *inflight.Registry[*models.VerificationResult], opts ...Option) *Service {
	s := &Service{
		pipeline: p,
		cache:    resultCache,
		flights:  flights,
		ttl:      config.DefaultResultCacheTTL,
		clock:    time.Now,
		logger:   slog.Default(),
		tracer:   otel.Tracer("trustboard/trustgate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify answers q. Validation problems return a CodeValidation error; a
// pipeline failure returns a CodeInternal error wrapping ErrPipelineFailure
// and is never cached. Collaborator outages are not errors: they lower
// confidence instead.
func (s *Service) Verify(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "trustgate.Verify")
	defer span.End()

	start := s.clock()
	if err := q.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = requestcontext.Now(ctx)
	}
	key := cache.Fingerprint(q)
	span.SetAttributes(attribute.String("query_id", q.ID), attribute.String("fingerprint", key))

	if hit := s.cached(ctx, key); hit != nil {
		s.metrics.IncrementCacheHit()
		span.SetAttributes(attribute.Bool("cache_hit", true))
		res := s.personalize(hit, q, start, "served from cache")
		s.metrics.ObserveVerification(outcome(res), res.ResponseTime)
		s.emit(ctx, audit.EventVerificationServedCached, q, key, res, nil)
		return res, nil
	}
	s.metrics.IncrementCacheMiss()

	shared, joined, err := s.flights.GetOrStart(ctx, key, func(ctx context.Context) (*models.VerificationResult, error) {
		s.metrics.SetInFlight(s.flights.Pending())
		// A run for this key may have finished between the lookup above and
		// this producer starting.
		if hit := s.cached(ctx, key); hit != nil {
			return hit, nil
		}
		res := s.run(ctx, q, start)
		if err := s.cache.Set(ctx, key, res, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "failed to cache verification result",
				"query_id", q.ID,
				"fingerprint", key,
				"error", err,
			)
		}
		return res, nil
	})
	s.metrics.SetInFlight(s.flights.Pending())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		if ctx.Err() != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "verification cancelled")
		}
		s.logger.ErrorContext(ctx, "verification pipeline failed",
			"query_id", q.ID,
			"fingerprint", key,
			"error", err,
		)
		s.metrics.ObserveVerification("failed", s.clock().Sub(start))
		s.emit(ctx, audit.EventVerificationFailed, q, key, nil, err)
		return nil, dErrors.Wrap(fmt.Errorf("%w: %w", ErrPipelineFailure, err), dErrors.CodeInternal, "verification failed")
	}

	note := "computed by verification pipeline"
	if joined {
		s.metrics.IncrementCoalesced()
		note = "joined in-flight verification"
	}
	res := s.personalize(shared, q, start, note)
	s.metrics.ObserveVerification(outcome(res), res.ResponseTime)
	s.emit(ctx, audit.EventVerificationCompleted, q, key, res, nil)
	s.logger.InfoContext(ctx, "verification completed",
		"query_id", q.ID,
		"verified", res.Verified,
		"confidence", res.Confidence,
		"evidence", len(res.Evidence),
		"coalesced", joined,
	)
	return res, nil
}

// Lookup returns the cached result for q without running the pipeline.
func (s *Service) Lookup(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, bool) {
	hit := s.cached(ctx, cache.Fingerprint(q))
	if hit == nil {
		return nil, false
	}
	now := s.clock()
	res := hit.Clone()
	res.QueryID = q.ID
	res.RespondedAt = now
	res.AuditTrail = append(res.AuditTrail, "served from cache")
	return res, true
}

func (s *Service) run(ctx context.Context, q models.VerificationQuery, start time.Time) *models.VerificationResult {
	analysis := s.pipeline.Analyzer.Analyze(q.Query)
	trail := []string{fmt.Sprintf("analyzed query: intent=%s complexity=%s keywords=%d",
		analysis.Intent, analysis.Complexity, len(analysis.Keywords))}

	sources := s.pipeline.Discovery.Discover(ctx, q, analysis)
	trail = append(trail, fmt.Sprintf("discovered %d candidate sources", len(sources)))

	collected := s.pipeline.Collector.Collect(ctx, q, sources)
	trail = append(trail, fmt.Sprintf("collected %d evidence items", len(collected.Evidence)))

	confidence := s.pipeline.Scorer.Score(collected.Evidence, analysis)
	trail = append(trail, fmt.Sprintf("scored confidence %d", confidence))

	return buildResult(q, collected.Sources, collected.Evidence, confidence, trail, start, s.clock())
}

func (s *Service) cached(ctx context.Context, key string) *models.VerificationResult {
	hit, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.WarnContext(ctx, "result cache unavailable", "fingerprint", key, "error", err)
		}
		return nil
	}
	return hit
}

// personalize copies a shared result for this caller's query.
func (s *Service) personalize(shared *models.VerificationResult, q models.VerificationQuery, start time.Time, note string) *models.VerificationResult {
	now := s.clock()
	res := shared.Clone()
	res.QueryID = q.ID
	res.IssuedAt = q.CreatedAt
	res.RespondedAt = now
	res.ResponseTime = now.Sub(start)
	res.AuditTrail = append(res.AuditTrail, note)
	return res
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, q models.VerificationQuery, key string, res *models.VerificationResult, cause error) {
	if s.auditor == nil {
		return
	}
	ev := audit.Event{
		Action:    string(event),
		RequestID: requestcontext.RequestID(ctx),
		QueryID:   q.ID,
		Subject:   key,
	}
	if !q.Anonymous {
		ev.RequesterID = q.RequesterID
	}
	if res != nil {
		ev.Decision = outcome(res)
		ev.Confidence = float64(res.Confidence)
	}
	if cause != nil {
		ev.Decision = "failed"
		ev.Reason = cause.Error()
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.metrics.IncrementAuditEmitFailure()
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}

func outcome(res *models.VerificationResult) string {
	if res.Verified {
		return "verified"
	}
	return "not_verified"
}
