// Package ports defines the interfaces the verification engine consumes.
// Concrete collaborators live in internal/verification/gateway and pkg/platform/audit.
package ports

import (
	"context"

	"trustboard/internal/verification/models"
	"trustboard/pkg/platform/audit"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway,AuditPublisher

// LookupStatus tags a collaborator response.
type LookupStatus int

const (
	StatusOK LookupStatus = iota
	StatusUnavailable
)

func (s LookupStatus) String() string {
	if s == StatusUnavailable {
		return "unavailable"
	}
	return "ok"
}

// Lookup is a collaborator response: either OK with data (possibly empty) or
// Unavailable with the reason. "No results" is always OK.
type Lookup[T any] struct {
	Status LookupStatus
	Data   T
	Reason error
}

// OK wraps a successful response.
func OK[T any](data T) Lookup[T] {
	return Lookup[T]{Status: StatusOK, Data: data}
}

// Unavailable wraps a total-unavailability response.
func Unavailable[T any](reason error) Lookup[T] {
	return Lookup[T]{Status: StatusUnavailable, Reason: reason}
}

func (l Lookup[T]) IsOK() bool {
	return l.Status == StatusOK
}

// Gateway is the trust-source registry plus record search.
type Gateway interface {
	// ListSources returns the sources an organization exposes, optionally
	// narrowed to a category.
	ListSources(ctx context.Context, organizationID, category string) Lookup[[]models.VerificationSource]

	// SearchRecords returns records in a source matching a free-text filter.
	SearchRecords(ctx context.Context, sourceID, filter string) Lookup[[]models.MatchingRecord]
}

// AuditPublisher emits audit events without blocking the verification path.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
