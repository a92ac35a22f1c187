package trustgate

import (
	"math"
	"time"

	"trustboard/internal/verification/models"
)

// VerifiedThreshold is the minimum confidence for a positive verdict.
const VerifiedThreshold = 70

// IsVerified applies the verdict rule: enough confidence and at least one
// piece of evidence.
func IsVerified(confidence int, evidence []models.Evidence) bool {
	return confidence >= VerifiedThreshold && len(evidence) > 0
}

// TierFor maps a confidence to a verification tier.
func TierFor(confidence int) models.VerificationTier {
	switch {
	case confidence > 90:
		return models.TierPremium
	case confidence > 70:
		return models.TierEnhanced
	default:
		return models.TierBasic
	}
}

// CostFor prices a result: a base fee, a per-evidence fee and a confidence
// premium, rounded to the cent.
func CostFor(confidence, evidenceCount int) float64 {
	premium := 0.0
	switch {
	case confidence > 90:
		premium = 0.02
	case confidence > 70:
		premium = 0.01
	}
	return roundCents(0.01 + 0.005*float64(evidenceCount) + premium)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// methodFor reports cross_reference when evidence came from more than one source.
func methodFor(evidence []models.Evidence) models.VerificationMethod {
	seen := make(map[string]struct{}, len(evidence))
	for _, e := range evidence {
		seen[e.SourceID] = struct{}{}
	}
	if len(seen) > 1 {
		return models.MethodCrossReference
	}
	return models.MethodDirect
}

func privacyFor(q models.VerificationQuery, verified bool) models.PrivacyDescriptor {
	shared := models.DataSharedPartial
	switch {
	case !verified:
		shared = models.DataSharedNone
	case q.Anonymous:
		shared = models.DataSharedMinimal
	}
	return models.PrivacyDescriptor{DataShared: shared, Anonymized: q.Anonymous, Encrypted: true}
}

// sourceFor attributes the result to the first source that produced evidence,
// else the first candidate, else the query's own scope.
func sourceFor(q models.VerificationQuery, sources []models.VerificationSource, tier models.VerificationTier) models.SourceDescriptor {
	pick := func(s models.VerificationSource) models.SourceDescriptor {
		return models.SourceDescriptor{
			OrganizationID:   s.OrganizationID,
			OrganizationName: s.OrganizationName,
			BoardID:          s.BoardID,
			BoardName:        s.Name,
			Tier:             tier,
		}
	}
	for _, s := range sources {
		if s.Verified {
			return pick(s)
		}
	}
	if len(sources) > 0 {
		return pick(sources[0])
	}
	return models.SourceDescriptor{OrganizationID: q.OrganizationID, BoardID: q.BoardID, Tier: tier}
}

// buildResult assembles the response for one pipeline run.
func buildResult(q models.VerificationQuery, sources []models.VerificationSource, evidence []models.Evidence,
	confidence int, trail []string, startedAt, now time.Time) *models.VerificationResult {
	verified := IsVerified(confidence, evidence)
	tier := TierFor(confidence)
	cost := CostFor(confidence, len(evidence))
	issued := q.CreatedAt
	if issued.IsZero() {
		issued = startedAt
	}
	return &models.VerificationResult{
		QueryID:      q.ID,
		Verified:     verified,
		Confidence:   confidence,
		IssuedAt:     issued,
		RespondedAt:  now,
		ResponseTime: now.Sub(startedAt),
		Source:       sourceFor(q, sources, tier),
		Method:       methodFor(evidence),
		Evidence:     evidence,
		AuditTrail:   trail,
		Privacy:      privacyFor(q, verified),
		Cost:         &cost,
	}
}
