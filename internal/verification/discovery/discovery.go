// Package discovery resolves candidate trust sources for a query.
package discovery

import (
	"context"
	"log/slog"

	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports"
)

// Discovery asks the gateway for an organization's sources. Registry
// failures degrade to no candidates; they are never returned as errors.
type Discovery struct {
	gateway ports.Gateway
	logger  *slog.Logger
}

type Option func(*Discovery)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Discovery) { d.logger = logger }
}

func New(gateway ports.Gateway, opts ...Option) *Discovery {
	d := &Discovery{gateway: gateway, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover lists sources for the query's organization, narrowed to the
// analysis's primary category. When the category yields nothing the search
// widens to every category. A board scope keeps only that board's sources.
func (d *Discovery) Discover(ctx context.Context, q models.VerificationQuery, analysis models.QueryAnalysis) []models.VerificationSource {
	if q.OrganizationID == "" {
		d.logger.DebugContext(ctx, "no organization scope, skipping discovery", "query_id", q.ID)
		return []models.VerificationSource{}
	}

	category := analysis.PrimaryCategory()
	res := d.gateway.ListSources(ctx, q.OrganizationID, category)
	if res.IsOK() && len(res.Data) == 0 && category != "" {
		res = d.gateway.ListSources(ctx, q.OrganizationID, "")
	}
	if !res.IsOK() {
		d.logger.WarnContext(ctx, "source discovery degraded",
			"query_id", q.ID,
			"organization_id", q.OrganizationID,
			"reason", res.Reason,
		)
		return []models.VerificationSource{}
	}

	if q.BoardID == "" {
		return res.Data
	}
	out := make([]models.VerificationSource, 0, len(res.Data))
	for _, s := range res.Data {
		if s.BoardID == q.BoardID {
			out = append(out, s)
		}
	}
	return out
}
