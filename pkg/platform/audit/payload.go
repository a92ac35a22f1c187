package audit

import (
	"encoding/json"
	"time"
)

// Payload is the wire form of an Event published to the outbox and Kafka.
type Payload struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Timestamp   string  `json:"timestamp"`
	Action      string  `json:"action"`
	RequestID   string  `json:"request_id,omitempty"`
	QueryID     string  `json:"query_id,omitempty"`
	RequesterID string  `json:"requester_id,omitempty"`
	Subject     string  `json:"subject,omitempty"`
	Decision    string  `json:"decision,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Marshal encodes event under the given id. Category is always derived from the action.
func Marshal(id string, event Event) ([]byte, error) {
	return json.Marshal(Payload{
		ID:          id,
		Category:    string(AuditEvent(event.Action).Category()),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		Action:      event.Action,
		RequestID:   event.RequestID,
		QueryID:     event.QueryID,
		RequesterID: event.RequesterID,
		Subject:     event.Subject,
		Decision:    event.Decision,
		Reason:      event.Reason,
		Confidence:  event.Confidence,
	})
}

// AggregateID returns the id an event is grouped under downstream.
func AggregateID(event Event) (aggregateType, aggregateID string) {
	switch {
	case event.QueryID != "":
		return "query", event.QueryID
	case event.RequestID != "":
		return "request", event.RequestID
	default:
		return "audit", ""
	}
}
