package models

import "strings"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Threshold is the minimum combined score; nil means the configured default.
	Threshold *float64 `json:"threshold,omitempty"`
}

// ApplyDefaults trims the query, fills in the default limit and threshold,
// and caps the limit at maxLimit.
func (q *SearchQuery) ApplyDefaults(defaultLimit, maxLimit int, defaultThreshold float64) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Threshold == nil {
		t := defaultThreshold
		q.Threshold = &t
	}
}

// ThresholdOr returns the query threshold, or def when unset.
func (q *SearchQuery) ThresholdOr(def float64) float64 {
	if q.Threshold == nil {
		return def
	}
	return *q.Threshold
}
