// Package gateway adapts a trust-source registry to ports.Gateway. The
// backend (in-process store or remote registry) is chosen once at startup.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trustboard/internal/platform/config"
	"trustboard/internal/platform/metrics"
	tsmodels "trustboard/internal/trustsource/models"
	"trustboard/internal/verification/models"
	"trustboard/internal/verification/ports"
	"trustboard/pkg/platform/sentinel"
)

// Registry is satisfied by the trustsource stores and the remote client.
type Registry interface {
	ListSources(ctx context.Context, organizationID, category string) ([]tsmodels.Source, error)
	SearchRecords(ctx context.Context, sourceID, filter string) ([]tsmodels.Record, error)
}

// Adapter implements ports.Gateway over a Registry. It never returns an
// error: failures become Unavailable lookups.
type Adapter struct {
	registry Registry
	kind     string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// NewLocal wraps an in-process store.
func NewLocal(store Registry, opts ...Option) *Adapter {
	return newAdapter(store, config.GatewayLocal, opts)
}

// NewRemote wraps a remote registry client.
func NewRemote(client Registry, opts ...Option) *Adapter {
	return newAdapter(client, config.GatewayRemote, opts)
}

// New selects the backend for mode.
func New(mode string, local, remote Registry, opts ...Option) (*Adapter, error) {
	switch mode {
	case config.GatewayLocal:
		if local == nil {
			return nil, errors.New("local gateway requires a record store")
		}
		return NewLocal(local, opts...), nil
	case config.GatewayRemote:
		if remote == nil {
			return nil, errors.New("remote gateway requires a registry client")
		}
		return NewRemote(remote, opts...), nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", mode)
	}
}

func newAdapter(r Registry, kind string, opts []Option) *Adapter {
	a := &Adapter{registry: r, kind: kind, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kind reports which backend the adapter wraps.
func (a *Adapter) Kind() string {
	return a.kind
}

func (a *Adapter) ListSources(ctx context.Context, organizationID, category string) ports.Lookup[[]models.VerificationSource] {
	sources, err := a.registry.ListSources(ctx, organizationID, category)
	if err != nil {
		a.metrics.IncrementGatewayRequest("list_sources", "unavailable")
		a.logger.WarnContext(ctx, "trust registry unavailable",
			"operation", "list_sources",
			"gateway", a.kind,
			"organization_id", organizationID,
			"error", err,
		)
		return ports.Unavailable[[]models.VerificationSource](err)
	}
	a.metrics.IncrementGatewayRequest("list_sources", "ok")

	out := make([]models.VerificationSource, 0, len(sources))
	for _, s := range sources {
		out = append(out, models.VerificationSource{
			ID:               s.ID,
			Name:             s.Name,
			OrganizationID:   s.OrganizationID,
			OrganizationName: s.OrganizationName,
			BoardID:          s.BoardID,
			Category:         s.Category,
		})
	}
	return ports.OK(out)
}

func (a *Adapter) SearchRecords(ctx context.Context, sourceID, filter string) ports.Lookup[[]models.MatchingRecord] {
	records, err := a.registry.SearchRecords(ctx, sourceID, filter)
	if errors.Is(err, sentinel.ErrNotFound) {
		records, err = nil, nil
	}
	if err != nil {
		a.metrics.IncrementGatewayRequest("search_records", "unavailable")
		a.logger.WarnContext(ctx, "trust registry unavailable",
			"operation", "search_records",
			"gateway", a.kind,
			"source_id", sourceID,
			"error", err,
		)
		return ports.Unavailable[[]models.MatchingRecord](err)
	}
	a.metrics.IncrementGatewayRequest("search_records", "ok")

	out := make([]models.MatchingRecord, 0, len(records))
	for _, r := range records {
		out = append(out, models.MatchingRecord{ID: r.ID, SourceID: r.SourceID, Summary: r.Summary})
	}
	return ports.OK(out)
}
