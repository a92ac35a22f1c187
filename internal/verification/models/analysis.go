package models

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentVerification Intent = "verification"
	IntentLookup       Intent = "lookup"
	IntentComparison   Intent = "comparison"
	IntentExistence    Intent = "existence"
)

// Complexity buckets a query by keyword count.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// EntityKind tags an extracted entity.
type EntityKind string

const (
	EntityEmail EntityKind = "email"
	EntityDate  EntityKind = "date"
	EntityPhone EntityKind = "phone"
	EntityName  EntityKind = "name"
)

// Entity is a typed span of query text.
type Entity struct {
	Kind  EntityKind `json:"kind"`
	Value string     `json:"value"`
}

// QueryAnalysis is the output of the query analyzer.
type QueryAnalysis struct {
	Keywords            []string   `json:"keywords"`
	Entities            []Entity   `json:"entities"`
	Intent              Intent     `json:"intent"`
	Complexity          Complexity `json:"complexity"`
	SuggestedCategories []string   `json:"suggested_categories"`
}

// PrimaryCategory returns the first suggested category, or "" when none.
func (a QueryAnalysis) PrimaryCategory() string {
	if len(a.SuggestedCategories) == 0 {
		return ""
	}
	return a.SuggestedCategories[0]
}
