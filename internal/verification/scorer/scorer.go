// Package scorer computes a 0..100 confidence from collected evidence.
package scorer

import (
	"math"

	"trustboard/internal/verification/models"
)

const diversityBonusPerKind = 2

var complexityAdjustment = map[models.Complexity]float64{
	models.ComplexitySimple:  5,
	models.ComplexityMedium:  0,
	models.ComplexityComplex: -10,
}

// Score returns mean evidence confidence, adjusted for query complexity and
// evidence diversity, clamped to [0,100]. No evidence scores 0.
func Score(evidence []models.Evidence, analysis models.QueryAnalysis) int {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	kinds := make(map[models.EvidenceKind]struct{}, len(evidence))
	for _, e := range evidence {
		sum += float64(e.Confidence)
		kinds[e.Kind] = struct{}{}
	}
	base := sum / float64(len(evidence))
	raw := base + complexityAdjustment[analysis.Complexity] + float64(diversityBonusPerKind*len(kinds))
	return int(math.Round(math.Max(0, math.Min(100, raw))))
}

// Scorer adapts Score to the pipeline's stage interface.
type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

func (Scorer) Score(evidence []models.Evidence, analysis models.QueryAnalysis) int {
	return Score(evidence, analysis)
}
