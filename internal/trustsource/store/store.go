// Package store persists trust sources and their records.
package store

import (
	"trustboard/pkg/platform/sentinel"
	"trustboard/pkg/platform/strings"
)

// ErrNotFound is returned when a source does not exist.
var ErrNotFound = sentinel.ErrNotFound

// minTermLength drops short filler words ("is", "a") from record filters.
const minTermLength = 2

// searchTerms splits a filter into the terms every matching record must contain.
func searchTerms(filter string) []string {
	return strings.SearchTerms(filter, minTermLength)
}
