package model

import (
	"errors"
	"strings"
	"testing"
)

func TestSearchRequestNormalize(t *testing.T) {
	req := &SearchRequest{
		Query:     "  quantum computing  ",
		SortBy:    " relevance ",
		DateFrom:  " 20230101 ",
		SortOrder: "",
	}

	req.Normalize()

	if req.Query != "quantum computing" {
		t.Errorf("expected trimmed query, got %q", req.Query)
	}
	if req.MaxResults != DefaultMaxResults {
		t.Errorf("expected default max results %d, got %d", DefaultMaxResults, req.MaxResults)
	}
	if req.SortBy != "relevance" {
		t.Errorf("expected sort_by relevance, got %q", req.SortBy)
	}
	if req.SortOrder != "descending" {
		t.Errorf("expected default sort_order descending, got %q", req.SortOrder)
	}
	if req.SearchField != "all" {
		t.Errorf("expected default search_field all, got %q", req.SearchField)
	}
	if req.DateFrom != "20230101" {
		t.Errorf("expected trimmed date_from, got %q", req.DateFrom)
	}
}

func TestSearchRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr error
	}{
		{
			name: "valid request",
			req:  SearchRequest{Query: "quantum computing", MaxResults: 5},
		},
		{
			name:    "empty query",
			req:     SearchRequest{Query: "", MaxResults: 5},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "query too long",
			req:     SearchRequest{Query: strings.Repeat("x", 513), MaxResults: 5},
			wantErr: ErrQueryTooLong,
		},
		{
			name:    "zero max results",
			req:     SearchRequest{Query: "quantum", MaxResults: 0},
			wantErr: ErrInvalidMaxResults,
		},
		{
			name:    "max results over limit",
			req:     SearchRequest{Query: "quantum", MaxResults: MaxResultsLimit + 1},
			wantErr: ErrInvalidMaxResults,
		},
		{
			name:    "malformed date_from",
			req:     SearchRequest{Query: "quantum", MaxResults: 5, DateFrom: "2023-01-01"},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "impossible date",
			req:     SearchRequest{Query: "quantum", MaxResults: 5, DateTo: "20231345"},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "inverted date range",
			req:     SearchRequest{Query: "quantum", MaxResults: 5, DateFrom: "20230201", DateTo: "20230101"},
			wantErr: ErrInvalidDateRange,
		},
		{
			name: "valid date range",
			req:  SearchRequest{Query: "quantum", MaxResults: 5, DateFrom: "20230101", DateTo: "20230201"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidatePaperID(t *testing.T) {
	if err := ValidatePaperID("2301.12345v1"); err != nil {
		t.Errorf("expected valid paper ID, got %v", err)
	}
	if err := ValidatePaperID("   "); !errors.Is(err, ErrEmptyPaperID) {
		t.Errorf("expected ErrEmptyPaperID, got %v", err)
	}
}

func TestTopicSlug(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		authorSearch string
		want         string
	}{
		{
			name:  "simple query",
			query: "Quantum Computing",
			want:  "quantum_computing",
		},
		{
			name:  "slashes replaced",
			query: "ml/nlp advances",
			want:  "ml_nlp_advances",
		},
		{
			name:  "long query capped at 50 characters",
			query: strings.Repeat("a", 60),
			want:  strings.Repeat("a", 50),
		},
		{
			name:         "author suffix keeps casing",
			query:        "*",
			authorSearch: "Yann LeCun",
			want:         "*_by_Yann_LeCun",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopicSlug(tt.query, tt.authorSearch)
			if got != tt.want {
				t.Errorf("TopicSlug(%q, %q) = %q, want %q", tt.query, tt.authorSearch, got, tt.want)
			}
		})
	}
}
