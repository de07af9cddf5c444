package arxiv

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/arxivmcp/pkg/metrics"
)

// sampleFeed is a trimmed arXiv Atom response with one entry
const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title type="html">ArXiv Query: search_query=all:electron</title>
  <opensearch:totalResults>1234</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.12345v1</id>
    <updated>2023-02-06T10:00:00Z</updated>
    <published>2023-01-30T18:59:59Z</published>
    <title>A Study of
   Electron Behavior</title>
    <summary>  We study electrons.
  Extensively.  </summary>
    <author><name>Jane Doe</name></author>
    <author><name>John Smith</name></author>
    <arxiv:primary_category xmlns:arxiv="http://arxiv.org/schemas/atom" term="cond-mat.str-el" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cond-mat.str-el" scheme="http://arxiv.org/schemas/atom"/>
    <category term="quant-ph" scheme="http://arxiv.org/schemas/atom"/>
    <link href="http://arxiv.org/abs/2301.12345v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.12345v1" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	return NewClient(&Config{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		RateInterval: 0, // no rate limiting in tests
	}, logger, m)
}

func TestSearch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"search_query": q.Get("search_query"),
			"start":        q.Get("start"),
			"max_results":  q.Get("max_results"),
			"sortBy":       q.Get("sortBy"),
			"sortOrder":    q.Get("sortOrder"),
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	result, err := c.Search(context.Background(), Query{
		SearchQuery: "all:electron",
		MaxResults:  5,
		SortBy:      SortSubmittedDate,
		SortOrder:   OrderDescending,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotQuery["search_query"] != "all:electron" {
		t.Errorf("expected search_query all:electron, got %q", gotQuery["search_query"])
	}
	if gotQuery["max_results"] != "5" {
		t.Errorf("expected max_results 5, got %q", gotQuery["max_results"])
	}
	if gotQuery["sortBy"] != "submittedDate" || gotQuery["sortOrder"] != "descending" {
		t.Errorf("unexpected sort parameters: %v", gotQuery)
	}

	if result.TotalResults != 1234 {
		t.Errorf("expected 1234 total results, got %d", result.TotalResults)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}

	e := result.Entries[0]
	if e.PaperID != "2301.12345v1" {
		t.Errorf("expected paper ID 2301.12345v1, got %q", e.PaperID)
	}
	if e.Title != "A Study of Electron Behavior" {
		t.Errorf("expected collapsed title, got %q", e.Title)
	}
	if e.Summary != "We study electrons. Extensively." {
		t.Errorf("expected collapsed summary, got %q", e.Summary)
	}
	if len(e.Authors) != 2 || e.Authors[0] != "Jane Doe" {
		t.Errorf("unexpected authors: %v", e.Authors)
	}
	if e.Published != "2023-01-30" || e.Updated != "2023-02-06" {
		t.Errorf("unexpected dates: published %q updated %q", e.Published, e.Updated)
	}
	if e.PrimaryCategory != "cond-mat.str-el" {
		t.Errorf("unexpected primary category: %q", e.PrimaryCategory)
	}
	if len(e.Categories) != 2 {
		t.Errorf("expected 2 categories, got %v", e.Categories)
	}
	if e.PDFURL != "http://arxiv.org/pdf/2301.12345v1" {
		t.Errorf("unexpected PDF URL: %q", e.PDFURL)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.Search(context.Background(), Query{SearchQuery: "electron"}); err == nil {
		t.Error("expected error on HTTP 503, got nil")
	}
}

func TestSearchDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not XML"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.Search(context.Background(), Query{SearchQuery: "electron"}); err == nil {
		t.Error("expected decode error, got nil")
	}
}

func TestSearchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Search(ctx, Query{SearchQuery: "electron"}); err == nil {
		t.Error("expected error with canceled context, got nil")
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.12345v1", "2301.12345v1"},
		{"https://arxiv.org/abs/cond-mat/0001001v2", "cond-mat/0001001v2"},
		{"2301.12345v1", "2301.12345v1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ShortID(tt.input); got != tt.want {
				t.Errorf("ShortID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertEntryPDFFallback(t *testing.T) {
	// Entries without a titled pdf link derive the URL from the abs URL
	e := convertEntry(feedEntry{
		ID:        "http://arxiv.org/abs/1234.56789v1",
		Title:     "No PDF Link",
		Published: "2020-01-01T00:00:00Z",
		Links: []feedLink{
			{Href: "http://arxiv.org/abs/1234.56789v1", Rel: "alternate"},
		},
	})

	if e.PDFURL != "http://arxiv.org/pdf/1234.56789v1" {
		t.Errorf("expected derived PDF URL, got %q", e.PDFURL)
	}
	if e.Updated != "2020-01-01" {
		t.Errorf("expected updated to fall back to published, got %q", e.Updated)
	}
}
