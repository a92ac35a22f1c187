package trustbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trustboard/internal/verification/models"
)

func settledResult(id string, verified bool, confidence int) models.VerificationResult {
	return models.VerificationResult{QueryID: id, Verified: verified, Confidence: confidence}
}

func mixedResults() []models.VerificationResult {
	return []models.VerificationResult{
		settledResult("q1", true, 90),
		settledResult("q2", true, 80),
		settledResult("q3", false, 50),
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		req        models.CrossVerificationRequest
		settled    []models.VerificationResult
		overall    models.OverallResult
		confidence float64
		consensus  float64
	}{
		{
			name:       "and takes the weakest answer",
			req:        models.CrossVerificationRequest{Logic: models.LogicAnd},
			settled:    mixedResults(),
			overall:    models.OverallNotVerified,
			confidence: 50,
			consensus:  66.67,
		},
		{
			name:       "or takes the strongest answer",
			req:        models.CrossVerificationRequest{Logic: models.LogicOr},
			settled:    mixedResults(),
			overall:    models.OverallVerified,
			confidence: 90,
			consensus:  66.67,
		},
		{
			name:       "weighted counts unverified answers as zero",
			req:        models.CrossVerificationRequest{Logic: models.LogicWeighted, MinimumConfidence: 60},
			settled:    mixedResults(),
			overall:    models.OverallNotVerified,
			confidence: 56.67,
			consensus:  66.67,
		},
		{
			name: "weighted honours per-query weights",
			req: models.CrossVerificationRequest{
				Logic:             models.LogicWeighted,
				MinimumConfidence: 60,
				Weights:           map[string]float64{"q1": 3, "q2": 1, "q3": 0},
			},
			settled:    mixedResults(),
			overall:    models.OverallVerified,
			confidence: 87.5,
			consensus:  66.67,
		},
		{
			name:       "weighted without a threshold uses the verified threshold",
			req:        models.CrossVerificationRequest{Logic: models.LogicWeighted},
			settled:    mixedResults(),
			overall:    models.OverallNotVerified,
			confidence: 56.67,
			consensus:  66.67,
		},
		{
			name:       "weighted without a threshold rejects unanimous denials",
			req:        models.CrossVerificationRequest{Logic: models.LogicWeighted},
			settled:    []models.VerificationResult{settledResult("q1", false, 10), settledResult("q2", false, 0)},
			overall:    models.OverallNotVerified,
			confidence: 0,
			consensus:  0,
		},
		{
			name: "weighted without a threshold accepts strong agreement",
			req:  models.CrossVerificationRequest{Logic: models.LogicWeighted},
			settled: []models.VerificationResult{
				settledResult("q1", true, 90),
				settledResult("q2", true, 80),
			},
			overall:    models.OverallVerified,
			confidence: 85,
			consensus:  100,
		},
		{
			name: "weighted with zero total weight is inconclusive",
			req: models.CrossVerificationRequest{
				Logic:             models.LogicWeighted,
				MinimumConfidence: 60,
				Weights:           map[string]float64{"q1": 0, "q2": 0, "q3": 0},
			},
			settled:    mixedResults(),
			overall:    models.OverallInconclusive,
			confidence: 0,
			consensus:  66.67,
		},
		{
			name:       "custom follows the majority",
			req:        models.CrossVerificationRequest{Logic: models.LogicCustom},
			settled:    mixedResults(),
			overall:    models.OverallVerified,
			confidence: 73.33,
			consensus:  66.67,
		},
		{
			name:       "custom below half is not verified",
			req:        models.CrossVerificationRequest{Logic: models.LogicCustom},
			settled:    []models.VerificationResult{settledResult("q1", true, 90), settledResult("q2", false, 40), settledResult("q3", false, 50)},
			overall:    models.OverallNotVerified,
			confidence: 60,
			consensus:  33.33,
		},
		{
			name:       "too few settled sources is partial",
			req:        models.CrossVerificationRequest{Logic: models.LogicOr, MinimumSources: 3},
			settled:    mixedResults()[:2],
			overall:    models.OverallPartial,
			confidence: 90,
			consensus:  100,
		},
		{
			name:    "nothing settled is inconclusive",
			req:     models.CrossVerificationRequest{Logic: models.LogicAnd, MinimumSources: 2},
			overall: models.OverallInconclusive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate(tt.settled, tt.req)
			assert.Equal(t, tt.overall, agg.Overall)
			assert.InDelta(t, tt.confidence, agg.Confidence, 0.001)
			assert.InDelta(t, tt.consensus, agg.Consensus, 0.001)
		})
	}
}

func TestAssessRisk(t *testing.T) {
	t.Run("contradictory answers", func(t *testing.T) {
		req := models.CrossVerificationRequest{Logic: models.LogicAnd}
		settled := mixedResults()
		risk := AssessRisk(settled, Aggregate(settled, req), req)

		assert.Equal(t, 30, risk.Score)
		assert.Equal(t, models.RiskMedium, risk.Level)
		assert.Equal(t, []string{"contradictory results"}, risk.Factors)
		assert.Equal(t, []string{"investigate conflicting sources", "manual review"}, risk.Recommendations)
	})

	t.Run("unanimous confident answers", func(t *testing.T) {
		req := models.CrossVerificationRequest{Logic: models.LogicAnd}
		settled := []models.VerificationResult{settledResult("q1", true, 90), settledResult("q2", true, 95)}
		risk := AssessRisk(settled, Aggregate(settled, req), req)

		assert.Zero(t, risk.Score)
		assert.Equal(t, models.RiskLow, risk.Level)
		assert.Empty(t, risk.Factors)
		assert.Empty(t, risk.Recommendations)
	})

	t.Run("weak slow split answers", func(t *testing.T) {
		req := models.CrossVerificationRequest{Logic: models.LogicCustom, MinimumSources: 3}
		settled := []models.VerificationResult{settledResult("q1", true, 30), settledResult("q2", false, 20)}
		for i := range settled {
			settled[i].ResponseTime = 6 * time.Second
		}
		risk := AssessRisk(settled, Aggregate(settled, req), req)

		assert.Equal(t, 60, risk.Score)
		assert.Equal(t, models.RiskHigh, risk.Level)
		assert.Equal(t, []string{"low average confidence", "contradictory results", "slow source responses"}, risk.Factors)
		assert.Equal(t, []string{"investigate conflicting sources", "review slow sources", "increase sources", "manual review"}, risk.Recommendations)
	})

	t.Run("nothing settled", func(t *testing.T) {
		req := models.CrossVerificationRequest{MinimumSources: 1}
		risk := AssessRisk(nil, Aggregate(nil, req), req)

		assert.Equal(t, 20, risk.Score)
		assert.Equal(t, models.RiskLow, risk.Level)
		assert.Equal(t, []string{"no settled responses"}, risk.Factors)
		assert.Equal(t, []string{"increase sources", "manual review"}, risk.Recommendations)
	})
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, models.RiskLow, levelFor(0))
	assert.Equal(t, models.RiskLow, levelFor(20))
	assert.Equal(t, models.RiskMedium, levelFor(21))
	assert.Equal(t, models.RiskMedium, levelFor(40))
	assert.Equal(t, models.RiskHigh, levelFor(60))
	assert.Equal(t, models.RiskCritical, levelFor(61))
}

func TestCost(t *testing.T) {
	priced := 0.03
	responses := []models.VerificationResult{
		{QueryID: "q1", Cost: &priced, Source: models.SourceDescriptor{OrganizationID: "org-medical"}},
		{QueryID: "q2", Source: models.SourceDescriptor{OrganizationID: "org-medical"}},
		{QueryID: "q3", Source: models.SourceDescriptor{OrganizationID: "org-bar"}},
		{QueryID: "q4"},
	}

	cost := Cost(responses)

	assert.InDelta(t, 0.06, cost.Total, 1e-9)
	assert.InDelta(t, 0.04, cost.BySource["org-medical"], 1e-9)
	assert.InDelta(t, 0.01, cost.BySource["org-bar"], 1e-9)
	assert.InDelta(t, 0.01, cost.BySource[unattributedOrganization], 1e-9)

	empty := Cost(nil)
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.BySource)
}
