// Package collector gathers evidence from candidate trust sources.
package collector

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports"
	"trustboard/pkg/requestcontext"
)

// BaselineConfidence is assigned to every matching record.
const BaselineConfidence = 85

const defaultConcurrency = 8

// Collection is the evidence gathered for one query plus the candidate
// sources annotated with whether they produced any.
type Collection struct {
	Evidence []models.Evidence
	Sources  []models.VerificationSource
}

// Collector searches each source independently. A failing source
// contributes nothing and never aborts the others.
type Collector struct {
	gateway     ports.Gateway
	concurrency int
	logger      *slog.Logger
}

type Option func(*Collector)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithConcurrency bounds how many sources are searched at once.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func New(gateway ports.Gateway, opts ...Option) *Collector {
	c := &Collector{gateway: gateway, concurrency: defaultConcurrency, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect searches every source with the query text and emits one document
// evidence per matching record. The input slice is not modified.
func (c *Collector) Collect(ctx context.Context, q models.VerificationQuery, sources []models.VerificationSource) Collection {
	annotated := append([]models.VerificationSource(nil), sources...)
	perSource := make([][]models.Evidence, len(sources))
	now := requestcontext.Now(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			res := c.gateway.SearchRecords(gctx, src.ID, q.Query)
			if !res.IsOK() {
				c.logger.WarnContext(ctx, "evidence source unavailable",
					"query_id", q.ID,
					"source_id", src.ID,
					"reason", res.Reason,
				)
				return nil
			}
			if len(res.Data) == 0 {
				return nil
			}
			ev := make([]models.Evidence, 0, len(res.Data))
			for _, rec := range res.Data {
				ev = append(ev, models.Evidence{
					Kind:       models.EvidenceDocument,
					SourceID:   src.ID,
					Timestamp:  now,
					Confidence: BaselineConfidence,
					Details:    fmt.Sprintf("matching record %s in %s", rec.ID, sourceLabel(src)),
					Verifiable: true,
				})
			}
			perSource[i] = ev
			annotated[i].Verified = true
			annotated[i].Confidence = BaselineConfidence
			return nil
		})
	}
	_ = g.Wait()

	evidence := []models.Evidence{}
	for _, ev := range perSource {
		evidence = append(evidence, ev...)
	}
	c.logger.DebugContext(ctx, "evidence collected",
		"query_id", q.ID,
		"sources", len(sources),
		"evidence", len(evidence),
	)
	return Collection{Evidence: evidence, Sources: annotated}
}

func sourceLabel(src models.VerificationSource) string {
	if src.Name != "" {
		return src.Name
	}
	return src.ID
}
