// Package strings provides string manipulation utilities shared by the
// query analyzer and the record stores.
package strings

import (
	"strings"
	"unicode"
)

// DedupeAndTrimLower trims, lowercases and removes duplicates and empty
// strings from a slice. Order of first appearance is preserved.
//
// Example:
//
//	DedupeAndTrimLower([]string{"  Licensing ", "health", "LICENSING"})
//	// Returns: []string{"licensing", "health"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Tokens splits s on whitespace and keeps tokens strictly longer than minLen
// runes. Tokens keep their original case and punctuation.
func Tokens(s string, minLen int) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > minLen {
			out = append(out, f)
		}
	}
	return out
}

// SearchTerms lowercases the tokens of s longer than minLen and strips
// leading and trailing punctuation, dropping tokens left empty.
func SearchTerms(s string, minLen int) []string {
	tokens := Tokens(s, minLen)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimFunc(strings.ToLower(t), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
