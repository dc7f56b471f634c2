package search

import (
	"sort"
	"strings"

	"github.com/hyperjump/docfind/internal/vector"
)

// QueryTerms returns the distinct lowercase whitespace-separated terms of query, sorted.
func QueryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	sort.Strings(terms)
	return terms
}

// countMatches returns how many terms occur as substrings of lowerText.
func countMatches(lowerText string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(lowerText, t) {
			n++
		}
	}
	return n
}

// KeywordScore returns the fraction of terms that occur in text, case-insensitively.
// Matching is by substring, so "rev" matches "revenue".
func KeywordScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	return float64(countMatches(strings.ToLower(text), terms)) / float64(len(terms))
}

// SemanticScore maps an inner product of unit vectors from [-1, 1] onto [0, 1].
func SemanticScore(raw float64) float64 {
	return vector.RemapCosine(raw)
}
