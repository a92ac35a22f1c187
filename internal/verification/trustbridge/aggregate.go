package trustbridge

import (
	"math"
	"time"

	"trustboard/internal/verification/models"
	"trustboard/internal/verification/trustgate"
)

const (
	// defaultResponseCost is billed for a response that carries no cost.
	defaultResponseCost = 0.01

	lowConfidenceThreshold   = 70
	manualReviewThreshold    = 80
	contradictionRatio       = 0.6
	slowResponseThreshold    = 5 * time.Second
	customConsensusThreshold = 50
	unattributedOrganization = "unattributed"
)

// Aggregation is the verdict over the settled responses.
type Aggregation struct {
	Overall    models.OverallResult
	Confidence float64
	Consensus  float64
}

// Aggregate combines settled results under req's logic. No settled results is
// inconclusive, and so is a weighted request whose settled weights sum to
// zero. Fewer than req.MinimumSources is partial whatever the logic says.
func Aggregate(settled []models.VerificationResult, req models.CrossVerificationRequest) Aggregation {
	n := len(settled)
	if n == 0 {
		return Aggregation{Overall: models.OverallInconclusive}
	}

	verifiedCount := 0
	confidences := make([]float64, n)
	for i, r := range settled {
		if r.Verified {
			verifiedCount++
		}
		confidences[i] = float64(r.Confidence)
	}
	consensus := float64(verifiedCount) / float64(n) * 100

	var verified bool
	var confidence float64
	switch req.Logic {
	case models.LogicAnd:
		verified = verifiedCount == n
		confidence = minOf(confidences)
	case models.LogicOr:
		verified = verifiedCount > 0
		confidence = maxOf(confidences)
	case models.LogicWeighted:
		var num, den float64
		for _, r := range settled {
			w := req.WeightFor(r.QueryID)
			den += w
			if r.Verified {
				num += w * float64(r.Confidence)
			}
		}
		if den == 0 {
			return Aggregation{Overall: models.OverallInconclusive, Consensus: round2(consensus)}
		}
		confidence = num / den
		verified = confidence >= minimumConfidence(req)
	default:
		verified = consensus >= customConsensusThreshold
		confidence = meanOf(confidences)
	}

	overall := models.OverallNotVerified
	if verified {
		overall = models.OverallVerified
	}
	if n < req.MinimumSources {
		overall = models.OverallPartial
	}
	return Aggregation{Overall: overall, Confidence: round2(confidence), Consensus: round2(consensus)}
}

// minimumConfidence is the weighted threshold. Unset falls back to the
// single-source verified threshold.
func minimumConfidence(req models.CrossVerificationRequest) float64 {
	if req.MinimumConfidence > 0 {
		return req.MinimumConfidence
	}
	return trustgate.VerifiedThreshold
}

// AssessRisk scores how much a caller should distrust the aggregate.
func AssessRisk(settled []models.VerificationResult, agg Aggregation, req models.CrossVerificationRequest) models.RiskAssessment {
	risk := models.RiskAssessment{Factors: []string{}, Recommendations: []string{}}
	n := len(settled)

	if n == 0 {
		risk.Score = 20
		risk.Factors = append(risk.Factors, "no settled responses")
	} else {
		verified, confSum := 0, 0.0
		var rtSum time.Duration
		for _, r := range settled {
			if r.Verified {
				verified++
			}
			confSum += float64(r.Confidence)
			rtSum += r.ResponseTime
		}
		notVerified := n - verified

		if confSum/float64(n) < lowConfidenceThreshold {
			risk.Score += 20
			risk.Factors = append(risk.Factors, "low average confidence")
		}
		if math.Abs(float64(verified-notVerified))/float64(n) < contradictionRatio {
			risk.Score += 30
			risk.Factors = append(risk.Factors, "contradictory results")
			risk.Recommendations = append(risk.Recommendations, "investigate conflicting sources")
		}
		if rtSum/time.Duration(n) > slowResponseThreshold {
			risk.Score += 10
			risk.Factors = append(risk.Factors, "slow source responses")
			risk.Recommendations = append(risk.Recommendations, "review slow sources")
		}
	}

	if n < req.MinimumSources {
		risk.Recommendations = append(risk.Recommendations, "increase sources")
	}
	if agg.Confidence < manualReviewThreshold {
		risk.Recommendations = append(risk.Recommendations, "manual review")
	}
	risk.Level = levelFor(risk.Score)
	return risk
}

func levelFor(score int) models.RiskLevel {
	switch {
	case score <= 20:
		return models.RiskLow
	case score <= 40:
		return models.RiskMedium
	case score <= 60:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// Cost sums response costs per source organization.
func Cost(responses []models.VerificationResult) models.CostBreakdown {
	out := models.CostBreakdown{BySource: map[string]float64{}}
	for _, r := range responses {
		c := defaultResponseCost
		if r.Cost != nil {
			c = *r.Cost
		}
		org := r.Source.OrganizationID
		if org == "" {
			org = unattributedOrganization
		}
		out.BySource[org] += c
		out.Total += c
	}
	for k, v := range out.BySource {
		out.BySource[k] = round2(v)
	}
	out.Total = round2(out.Total)
	return out
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
