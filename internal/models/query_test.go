package models

import (
	"testing"
)

func TestSearchQuery_ApplyDefaults(t *testing.T) {
	half := 0.5
	tests := []struct {
		name          string
		query         *SearchQuery
		wantLimit     int
		wantThreshold float64
	}{
		{"sets default limit", &SearchQuery{Query: "x"}, 5, 0.3},
		{"caps limit", &SearchQuery{Query: "x", Limit: 500}, 100, 0.3},
		{"keeps limit", &SearchQuery{Query: "x", Limit: 7}, 7, 0.3},
		{"keeps threshold", &SearchQuery{Query: "x", Threshold: &half}, 5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.ApplyDefaults(5, 100, 0.3)
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
			if got := tt.query.ThresholdOr(-1); got != tt.wantThreshold {
				t.Errorf("Threshold = %v, want %v", got, tt.wantThreshold)
			}
		})
	}
}

func TestSearchQuery_TrimsQuery(t *testing.T) {
	q := &SearchQuery{Query: "  revenue  "}
	q.ApplyDefaults(5, 100, 0.3)
	if q.Query != "revenue" {
		t.Errorf("Query = %q", q.Query)
	}
}

func TestSearchQuery_ThresholdOr(t *testing.T) {
	q := &SearchQuery{}
	if q.ThresholdOr(0.3) != 0.3 {
		t.Error("unset threshold should return the default")
	}
	zero := 0.0
	q.Threshold = &zero
	if q.ThresholdOr(0.3) != 0 {
		t.Error("explicit zero threshold should be kept")
	}
}
