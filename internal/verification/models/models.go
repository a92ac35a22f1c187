package models

import (
	"time"
)

// RequesterType identifies what kind of party asked the question.
type RequesterType string

const (
	RequesterIndividual   RequesterType = "individual"
	RequesterOrganization RequesterType = "organization"
	RequesterSystem       RequesterType = "system"
)

// Urgency is advisory; the engine records it but does not reorder work by it.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// EvidenceKind classifies a piece of evidence.
type EvidenceKind string

const (
	EvidenceDocument       EvidenceKind = "document"
	EvidenceWitness        EvidenceKind = "witness"
	EvidenceBiometric      EvidenceKind = "biometric"
	EvidenceLedger         EvidenceKind = "ledger"
	EvidenceCrossReference EvidenceKind = "cross_reference"
)

// VerificationTier is a confidence-derived quality label.
type VerificationTier string

const (
	TierBasic    VerificationTier = "basic"
	TierEnhanced VerificationTier = "enhanced"
	TierPremium  VerificationTier = "premium"
)

// VerificationMethod describes how the verdict was reached.
type VerificationMethod string

const (
	MethodDirect         VerificationMethod = "direct"
	MethodCrossReference VerificationMethod = "cross_reference"
	MethodAssisted       VerificationMethod = "assisted"
)

// DataSharedLevel describes how much of the underlying record left the source.
type DataSharedLevel string

const (
	DataSharedNone    DataSharedLevel = "none"
	DataSharedMinimal DataSharedLevel = "minimal"
	DataSharedPartial DataSharedLevel = "partial"
	DataSharedFull    DataSharedLevel = "full"
)

// VerificationQuery is a single yes/no question. Treat as immutable once built.
type VerificationQuery struct {
	ID             string            `json:"id"`
	Query          string            `json:"query"`
	BoardID        string            `json:"board_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	RequesterID    string            `json:"requester_id"`
	RequesterType  RequesterType     `json:"requester_type"`
	Anonymous      bool              `json:"anonymous"`
	Urgency        Urgency           `json:"urgency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Evidence is one supporting fact gathered from a trust source.
type Evidence struct {
	Kind       EvidenceKind `json:"kind"`
	SourceID   string       `json:"source_id"`
	Timestamp  time.Time    `json:"timestamp"`
	Confidence int          `json:"confidence"`
	Details    string       `json:"details"`
	Verifiable bool         `json:"verifiable"`
}

// SourceDescriptor attributes a result to an organization and board.
type SourceDescriptor struct {
	OrganizationID   string           `json:"organization_id,omitempty"`
	OrganizationName string           `json:"organization_name,omitempty"`
	BoardID          string           `json:"board_id,omitempty"`
	BoardName        string           `json:"board_name,omitempty"`
	Tier             VerificationTier `json:"tier"`
}

// PrivacyDescriptor records what the response disclosed.
type PrivacyDescriptor struct {
	DataShared DataSharedLevel `json:"data_shared"`
	Anonymized bool            `json:"anonymized"`
	Encrypted  bool            `json:"encrypted"`
}

// VerificationResult is the answer to a single VerificationQuery.
type VerificationResult struct {
	QueryID      string             `json:"query_id"`
	Verified     bool               `json:"verified"`
	Confidence   int                `json:"confidence"`
	IssuedAt     time.Time          `json:"issued_at"`
	RespondedAt  time.Time          `json:"responded_at"`
	ResponseTime time.Duration      `json:"response_time"`
	Source       SourceDescriptor   `json:"source"`
	Method       VerificationMethod `json:"method"`
	Evidence     []Evidence         `json:"evidence"`
	AuditTrail   []string           `json:"audit_trail"`
	Privacy      PrivacyDescriptor  `json:"privacy"`
	Cost         *float64           `json:"cost,omitempty"`
}

// Clone returns a deep copy so shared and cached results are never mutated by callers.
func (r *VerificationResult) Clone() *VerificationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Evidence = append([]Evidence(nil), r.Evidence...)
	out.AuditTrail = append([]string(nil), r.AuditTrail...)
	if r.Cost != nil {
		c := *r.Cost
		out.Cost = &c
	}
	return &out
}

// CacheEntry is what a ResultCache stores per fingerprint.
type CacheEntry struct {
	Key      string              `json:"key"`
	Result   *VerificationResult `json:"result"`
	StoredAt time.Time           `json:"stored_at"`
	TTL      time.Duration       `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.StoredAt.Add(e.TTL))
}

// Valid reports whether the entry is structurally sound for key.
func (e CacheEntry) Valid(key string) bool {
	return e.Key == key && e.Result != nil && e.TTL > 0 && !e.StoredAt.IsZero() &&
		e.Result.Confidence >= 0 && e.Result.Confidence <= 100
}

// VerificationSource is a candidate trust source resolved for a query.
// Verified and Confidence are set once evidence has been collected from it.
type VerificationSource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	BoardID          string `json:"board_id,omitempty"`
	Category         string `json:"category,omitempty"`
	Verified         bool   `json:"verified"`
	Confidence       int    `json:"confidence"`
}

// MatchingRecord is a record returned by a source search.
type MatchingRecord struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Summary  string `json:"summary"`
}
