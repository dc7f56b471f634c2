package search

import (
	"reflect"
	"testing"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Revenue report", []string{"report", "revenue"}},
		{"  revenue   REVENUE report ", []string{"report", "revenue"}},
		{"", []string{}},
		{"\t\n", []string{}},
	}
	for _, tt := range tests {
		if got := QueryTerms(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("QueryTerms(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		text  string
		terms []string
		want  float64
	}{
		{"Quarterly Revenue Report", []string{"revenue"}, 1},
		{"Quarterly Revenue Report", []string{"revenue", "pasta"}, 0.5},
		{"Quarterly Revenue Report", []string{"rev"}, 1},
		{"cooking pasta", []string{"revenue"}, 0},
		{"anything", nil, 0},
	}
	for _, tt := range tests {
		if got := KeywordScore(tt.text, tt.terms); got != tt.want {
			t.Errorf("KeywordScore(%q, %v) = %v, want %v", tt.text, tt.terms, got, tt.want)
		}
	}
}

func TestSemanticScore(t *testing.T) {
	for raw, want := range map[float64]float64{-1: 0, 0: 0.5, 1: 1} {
		if got := SemanticScore(raw); got != want {
			t.Errorf("SemanticScore(%v) = %v, want %v", raw, got, want)
		}
	}
}
