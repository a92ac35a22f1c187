// Package analyzer turns free-text queries into keywords, entities, intent,
// complexity and suggested registry categories. It never fails.
package analyzer

import (
	"regexp"
	"strings"

	"trustboard/internal/verification/models"
	pstrings "trustboard/pkg/platform/strings"
)

// minKeywordLength drops tokens of two characters or fewer.
const minKeywordLength = 2

var entityPatterns = []struct {
	kind models.EntityKind
	re   *regexp.Regexp
}{
	{models.EntityEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{models.EntityDate, regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)},
	{models.EntityPhone, regexp.MustCompile(`\+?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)},
	{models.EntityName, regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)},
}

// intentTable is checked in order; the first intent with a matching keyword wins.
var intentTable = []struct {
	intent   models.Intent
	keywords []string
}{
	{models.IntentVerification, []string{"verify", "confirm", "validate", "check", "authentic", "valid"}},
	{models.IntentLookup, []string{"find", "search", "lookup", "get", "show", "who", "what"}},
	{models.IntentComparison, []string{"compare", "match", "versus", "same", "differ"}},
	{models.IntentExistence, []string{"exist", "exists", "registered", "have", "has", "is there"}},
}

var categoryTerms = map[string]string{
	"license":       "licensing",
	"licence":       "licensing",
	"licensed":      "licensing",
	"certificate":   "licensing",
	"certification": "licensing",
	"certified":     "licensing",
	"medical":       "healthcare",
	"doctor":        "healthcare",
	"nurse":         "healthcare",
	"physician":     "healthcare",
	"degree":        "education",
	"diploma":       "education",
	"university":    "education",
	"graduate":      "education",
	"employment":    "employment",
	"employee":      "employment",
	"employer":      "employment",
	"job":           "employment",
	"member":        "membership",
	"membership":    "membership",
	"identity":      "identity",
	"passport":      "identity",
}

// Analyzer is stateless and safe for concurrent use.
type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

// Analyze classifies a query.
func (a *Analyzer) Analyze(query string) models.QueryAnalysis {
	tokens := pstrings.Tokens(query, minKeywordLength)
	keywords := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keywords = append(keywords, strings.ToLower(t))
	}

	terms := pstrings.SearchTerms(query, 0)
	return models.QueryAnalysis{
		Keywords:            keywords,
		Entities:            extractEntities(query),
		Intent:              classifyIntent(terms),
		Complexity:          complexityFor(len(keywords)),
		SuggestedCategories: suggestCategories(terms),
	}
}

func extractEntities(query string) []models.Entity {
	out := []models.Entity{}
	for _, p := range entityPatterns {
		for _, m := range p.re.FindAllString(query, -1) {
			out = append(out, models.Entity{Kind: p.kind, Value: m})
		}
	}
	return out
}

func classifyIntent(terms []string) models.Intent {
	padded := " " + strings.Join(terms, " ") + " "
	for _, row := range intentTable {
		for _, kw := range row.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return row.intent
			}
		}
	}
	return models.IntentVerification
}

func complexityFor(keywordCount int) models.Complexity {
	switch {
	case keywordCount <= 2:
		return models.ComplexitySimple
	case keywordCount <= 5:
		return models.ComplexityMedium
	default:
		return models.ComplexityComplex
	}
}

func suggestCategories(terms []string) []string {
	var cats []string
	for _, t := range terms {
		if c, ok := categoryTerms[t]; ok {
			cats = append(cats, c)
		}
	}
	if cats == nil {
		return []string{}
	}
	return pstrings.DedupeAndTrimLower(cats)
}
