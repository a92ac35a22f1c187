package handler

import (
	"fmt"
	"strings"
	"time"

	"trustboard/internal/verification/models"
	dErrors "trustboard/pkg/domain-errors"
)

// VerifyRequest is the body of POST /v1/verifications.
type VerifyRequest struct {
	ID             string            `json:"id,omitempty"`
	Query          string            `json:"query"`
	BoardID        string            `json:"board_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	RequesterID    string            `json:"requester_id,omitempty"`
	RequesterType  string            `json:"requester_type,omitempty"`
	Anonymous      bool              `json:"anonymous,omitempty"`
	Urgency        string            `json:"urgency,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.ID = strings.TrimSpace(r.ID)
	r.Query = strings.TrimSpace(r.Query)
	r.BoardID = strings.TrimSpace(r.BoardID)
	r.OrganizationID = strings.TrimSpace(r.OrganizationID)
	r.RequesterID = strings.TrimSpace(r.RequesterID)
	r.RequesterType = strings.ToLower(strings.TrimSpace(r.RequesterType))
	r.Urgency = strings.ToLower(strings.TrimSpace(r.Urgency))
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return r.toQuery("", time.Time{}).Validate()
}

// toQuery builds the domain query. fallbackRequester is used when the body
// names no requester.
func (r *VerifyRequest) toQuery(fallbackRequester string, now time.Time) models.VerificationQuery {
	requester := r.RequesterID
	if requester == "" {
		requester = fallbackRequester
	}
	kind := models.RequesterType(r.RequesterType)
	if kind == "" {
		kind = models.RequesterIndividual
	}
	urgency := models.Urgency(r.Urgency)
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	q := models.NewQuery(r.Query, now,
		models.WithBoard(r.BoardID),
		models.WithOrganization(r.OrganizationID),
		models.WithRequester(requester, kind),
		models.WithAnonymous(r.Anonymous),
		models.WithUrgency(urgency),
		models.WithMetadata(r.Metadata),
	)
	if r.ID != "" {
		q.ID = r.ID
	}
	return q
}

// CrossVerifyRequest is the body of POST /v1/cross-verifications.
type CrossVerifyRequest struct {
	ID                string             `json:"id,omitempty"`
	Queries           []VerifyRequest    `json:"queries"`
	Logic             string             `json:"logic,omitempty"`
	Weights           map[string]float64 `json:"weights,omitempty"`
	MinimumConfidence float64            `json:"minimum_confidence,omitempty"`
	MinimumSources    int                `json:"minimum_sources,omitempty"`
	TimeoutMS         int64              `json:"timeout_ms,omitempty"`
	FailureStrategy   string             `json:"failure_strategy,omitempty"`
	RequesterID       string             `json:"requester_id,omitempty"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
}

func (r *CrossVerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.ID = strings.TrimSpace(r.ID)
	r.Logic = strings.ToUpper(strings.TrimSpace(r.Logic))
	r.FailureStrategy = strings.ToLower(strings.TrimSpace(r.FailureStrategy))
	r.RequesterID = strings.TrimSpace(r.RequesterID)
	for i := range r.Queries {
		r.Queries[i].Normalize()
	}
}

func (r *CrossVerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Queries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one query is required")
	}
	if r.TimeoutMS < 0 {
		return dErrors.New(dErrors.CodeValidation, "timeout_ms must not be negative")
	}
	if r.Logic != "" && !models.CombinationLogic(r.Logic).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "logic must be one of AND, OR, WEIGHTED, CUSTOM")
	}
	if r.FailureStrategy != "" && !models.FailureStrategy(r.FailureStrategy).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "failure_strategy must be one of fail-fast, best-effort, fallback")
	}
	for i := range r.Queries {
		if err := r.Queries[i].Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("queries[%d]: %s", i, dErrors.MessageOf(err)))
		}
	}
	return nil
}

func (r *CrossVerifyRequest) toRequest(fallbackRequester string, now time.Time) models.CrossVerificationRequest {
	requester := r.RequesterID
	if requester == "" {
		requester = fallbackRequester
	}
	queries := make([]models.VerificationQuery, len(r.Queries))
	for i := range r.Queries {
		queries[i] = r.Queries[i].toQuery(requester, now)
	}
	return models.CrossVerificationRequest{
		ID:                r.ID,
		Queries:           queries,
		Logic:             models.CombinationLogic(r.Logic),
		Weights:           r.Weights,
		MinimumConfidence: r.MinimumConfidence,
		MinimumSources:    r.MinimumSources,
		Timeout:           time.Duration(r.TimeoutMS) * time.Millisecond,
		FailureStrategy:   models.FailureStrategy(r.FailureStrategy),
		RequesterID:       requester,
		Metadata:          r.Metadata,
	}
}
