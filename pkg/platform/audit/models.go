package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers verification verdicts handed to third parties.
	// These require durable storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    EventCategory
	Timestamp   time.Time
	Action      string
	RequestID   string
	QueryID     string
	RequesterID string
	// Subject is the query fingerprint, never the raw query text.
	Subject    string
	Decision   string
	Reason     string
	Confidence float64
}

type AuditEvent string

const (
	EventVerificationCompleted      AuditEvent = "verification_completed"
	EventVerificationFailed         AuditEvent = "verification_failed"
	EventVerificationServedCached   AuditEvent = "verification_served_cached"
	EventCrossVerificationCompleted AuditEvent = "cross_verification_completed"
	EventCrossVerificationFailed    AuditEvent = "cross_verification_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationCompleted:      CategoryCompliance,
	EventCrossVerificationCompleted: CategoryCompliance,

	EventVerificationFailed:       CategoryOperations,
	EventVerificationServedCached: CategoryOperations,
	EventCrossVerificationFailed:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
