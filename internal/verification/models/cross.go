package models

import (
	"fmt"
	"time"
)

// CombinationLogic selects how individual results are aggregated.
type CombinationLogic string

const (
	LogicAnd      CombinationLogic = "AND"
	LogicOr       CombinationLogic = "OR"
	LogicWeighted CombinationLogic = "WEIGHTED"
	LogicCustom   CombinationLogic = "CUSTOM"
)

func (l CombinationLogic) IsValid() bool {
	switch l {
	case LogicAnd, LogicOr, LogicWeighted, LogicCustom:
		return true
	}
	return false
}

// FailureStrategy controls what happens to failed or unresolved queries.
type FailureStrategy string

const (
	FailFast   FailureStrategy = "fail-fast"
	BestEffort FailureStrategy = "best-effort"
	Fallback   FailureStrategy = "fallback"
)

func (s FailureStrategy) IsValid() bool {
	switch s {
	case FailFast, BestEffort, Fallback:
		return true
	}
	return false
}

// OverallResult is the aggregated verdict.
type OverallResult string

const (
	OverallVerified     OverallResult = "verified"
	OverallNotVerified  OverallResult = "not-verified"
	OverallPartial      OverallResult = "partial"
	OverallInconclusive OverallResult = "inconclusive"
)

// RiskLevel buckets a risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RequestState is the lifecycle state of a cross-verification request.
type RequestState string

const (
	StatePending     RequestState = "pending"
	StateFanningOut  RequestState = "fanning_out"
	StateAggregating RequestState = "aggregating"
	StateTimedOut    RequestState = "timed_out"
	StateCompleted   RequestState = "completed"
	StateFailed      RequestState = "failed"
)

var stateTransitions = map[RequestState][]RequestState{
	StatePending:     {StateFanningOut, StateFailed},
	StateFanningOut:  {StateAggregating, StateTimedOut, StateFailed},
	StateAggregating: {StateCompleted, StateFailed},
	StateTimedOut:    {StateCompleted, StateFailed},
}

// IsTerminal reports whether no further transitions are allowed.
func (s RequestState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether s -> to is a legal move.
func (s RequestState) CanTransition(to RequestState) bool {
	for _, next := range stateTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns to, or an error when the move is illegal.
func (s RequestState) Transition(to RequestState) (RequestState, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("illegal state transition %s -> %s", s, to)
	}
	return to, nil
}

// CrossVerificationRequest asks several questions and combines the answers.
type CrossVerificationRequest struct {
	ID                string              `json:"id"`
	Queries           []VerificationQuery `json:"queries"`
	Logic             CombinationLogic    `json:"logic"`
	Weights           map[string]float64  `json:"weights,omitempty"` // keyed by query id
	MinimumConfidence float64             `json:"minimum_confidence"`
	MinimumSources    int                 `json:"minimum_sources"`
	Timeout           time.Duration       `json:"timeout"`
	FailureStrategy   FailureStrategy     `json:"failure_strategy"`
	RequesterID       string              `json:"requester_id"`
	Metadata          map[string]string   `json:"metadata,omitempty"`
}

// WeightFor returns the configured weight for a query, defaulting to 1.
func (r CrossVerificationRequest) WeightFor(queryID string) float64 {
	if w, ok := r.Weights[queryID]; ok {
		return w
	}
	return 1
}

// AggregationStats summarizes the fan-out.
type AggregationStats struct {
	TotalQueries        int           `json:"total_queries"`
	Responded           int           `json:"responded"`
	Settled             int           `json:"settled"`
	Verified            int           `json:"verified"`
	NotVerified         int           `json:"not_verified"`
	Failed              int           `json:"failed"`
	TimedOut            int           `json:"timed_out"`
	Substituted         int           `json:"substituted"`
	AverageConfidence   float64       `json:"average_confidence"`
	AverageResponseTime time.Duration `json:"average_response_time"`
}

// RiskAssessment flags aggregated results that need attention.
type RiskAssessment struct {
	Score           int       `json:"score"`
	Level           RiskLevel `json:"level"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
}

// CostBreakdown totals per-response costs by source organization.
type CostBreakdown struct {
	Total    float64            `json:"total"`
	BySource map[string]float64 `json:"by_source"`
}

// AuditStep is one entry in a cross-verification audit trail.
type AuditStep struct {
	Offset   time.Duration `json:"offset"`
	Action   string        `json:"action"`
	QueryID  string        `json:"query_id,omitempty"`
	Source   string        `json:"source,omitempty"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Detail   string        `json:"detail,omitempty"`
}

// AuditTrail records a cross-verification from start to end.
type AuditTrail struct {
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	Steps       []AuditStep   `json:"steps"`
}

// CrossVerificationResult is the aggregated answer to a CrossVerificationRequest.
type CrossVerificationResult struct {
	RequestID  string               `json:"request_id"`
	Overall    OverallResult        `json:"overall"`
	Confidence float64              `json:"confidence"`
	Consensus  float64              `json:"consensus"`
	Responses  []VerificationResult `json:"responses"`
	Stats      AggregationStats     `json:"stats"`
	Risk       RiskAssessment       `json:"risk"`
	Cost       CostBreakdown        `json:"cost"`
	Audit      AuditTrail           `json:"audit"`
	State      RequestState         `json:"state"`
}
