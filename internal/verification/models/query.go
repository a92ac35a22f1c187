package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "trustboard/pkg/domain-errors"
)

// MaxQueryLength bounds free-text queries.
const MaxQueryLength = 1000

// QueryOption customizes a query built by NewQuery.
type QueryOption func(*VerificationQuery)

func WithBoard(boardID string) QueryOption {
	return func(q *VerificationQuery) { q.BoardID = boardID }
}

func WithOrganization(orgID string) QueryOption {
	return func(q *VerificationQuery) { q.OrganizationID = orgID }
}

func WithRequester(id string, kind RequesterType) QueryOption {
	return func(q *VerificationQuery) {
		q.RequesterID = id
		q.RequesterType = kind
	}
}

func WithAnonymous(anonymous bool) QueryOption {
	return func(q *VerificationQuery) { q.Anonymous = anonymous }
}

func WithUrgency(u Urgency) QueryOption {
	return func(q *VerificationQuery) { q.Urgency = u }
}

func WithMetadata(md map[string]string) QueryOption {
	return func(q *VerificationQuery) { q.Metadata = md }
}

// NewQuery builds a query with a fresh id and creation time.
func NewQuery(text string, now time.Time, opts ...QueryOption) VerificationQuery {
	q := VerificationQuery{
		ID:            uuid.NewString(),
		Query:         text,
		RequesterType: RequesterIndividual,
		Urgency:       UrgencyNormal,
		CreatedAt:     now,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Validate checks the fields the pipeline depends on.
func (q VerificationQuery) Validate() error {
	text := strings.TrimSpace(q.Query)
	if text == "" {
		return dErrors.New(dErrors.CodeValidation, "query text is required")
	}
	if len(text) > MaxQueryLength {
		return dErrors.New(dErrors.CodeValidation, "query text is too long")
	}
	switch q.RequesterType {
	case "", RequesterIndividual, RequesterOrganization, RequesterSystem:
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown requester type")
	}
	switch q.Urgency {
	case "", UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown urgency")
	}
	return nil
}
