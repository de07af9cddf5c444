package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/yourorg/arxivmcp/internal/arxiv"
	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/internal/testutil"
	"github.com/yourorg/arxivmcp/pkg/model"
)

func newTestService(searcher arxiv.Searcher, repo repository.PaperRepository) *Service {
	log, _ := testutil.NewTestLogger()
	return NewService(searcher, repo, log)
}

func sampleEntry(id string) arxiv.Entry {
	return arxiv.Entry{
		PaperID:         id,
		EntryID:         "http://arxiv.org/abs/" + id,
		Title:           "Attention Is All You Need",
		Summary:         "We propose a new network architecture based solely on attention mechanisms.",
		Authors:         []string{"Ashish Vaswani", "Noam Shazeer"},
		Categories:      []string{"cs.CL", "cs.LG"},
		PrimaryCategory: "cs.CL",
		Published:       "2017-06-12",
		Updated:         "2017-12-06",
		PDFURL:          "http://arxiv.org/pdf/" + id,
	}
}

func TestSearch(t *testing.T) {
	searcher := &testutil.FakeSearcher{
		Result: &arxiv.Result{
			TotalResults: 2,
			Entries:      []arxiv.Entry{sampleEntry("1706.03762v5"), sampleEntry("2301.12345v1")},
		},
	}
	repo := &testutil.FakePaperRepository{}
	svc := newTestService(searcher, repo)

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "transformer models"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if resp.TotalFound != 2 {
		t.Errorf("expected 2 papers found, got %d", resp.TotalFound)
	}
	if resp.NewPapers != 2 {
		t.Errorf("expected 2 new papers, got %d", resp.NewPapers)
	}
	if resp.StorageTopic != "transformer_models" {
		t.Errorf("expected topic 'transformer_models', got %q", resp.StorageTopic)
	}
	if len(resp.PaperIDs) != 2 || resp.PaperIDs[0] != "1706.03762v5" {
		t.Errorf("unexpected paper IDs: %v", resp.PaperIDs)
	}
	if !strings.Contains(resp.Message, "Found 2 papers (2 new)") {
		t.Errorf("unexpected message: %q", resp.Message)
	}

	// The query should pass through without a field prefix
	q := searcher.LastQuery(t)
	if q.SearchQuery != "transformer models" {
		t.Errorf("expected plain search query, got %q", q.SearchQuery)
	}
	if q.MaxResults != model.DefaultMaxResults {
		t.Errorf("expected default max results %d, got %d", model.DefaultMaxResults, q.MaxResults)
	}
	if q.SortBy != arxiv.SortRelevance {
		t.Errorf("expected relevance sort, got %q", q.SortBy)
	}
}

func TestSearchDeduplicates(t *testing.T) {
	searcher := &testutil.FakeSearcher{
		Result: &arxiv.Result{
			TotalResults: 1,
			Entries:      []arxiv.Entry{sampleEntry("1706.03762v5")},
		},
	}
	repo := &testutil.FakePaperRepository{}
	svc := newTestService(searcher, repo)

	if _, err := svc.Search(context.Background(), &model.SearchRequest{Query: "attention"}); err != nil {
		t.Fatalf("first search failed: %v", err)
	}

	resp, err := svc.Search(context.Background(), &model.SearchRequest{Query: "attention"})
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if resp.TotalFound != 1 {
		t.Errorf("expected 1 paper found, got %d", resp.TotalFound)
	}
	if resp.NewPapers != 0 {
		t.Errorf("expected 0 new papers on repeat search, got %d", resp.NewPapers)
	}
}

func TestSearchValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *model.SearchRequest
	}{
		{"empty query", &model.SearchRequest{Query: "   "}},
		{"query too long", &model.SearchRequest{Query: strings.Repeat("x", 513)}},
		{"max results too large", &model.SearchRequest{Query: "quantum", MaxResults: 5000}},
		{"bad date", &model.SearchRequest{Query: "quantum", DateFrom: "2023-01-01"}},
		{"inverted range", &model.SearchRequest{Query: "quantum", DateFrom: "20230201", DateTo: "20230101"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &testutil.FakeSearcher{}
			svc := newTestService(searcher, &testutil.FakePaperRepository{})

			if _, err := svc.Search(context.Background(), tt.req); err == nil {
				t.Error("expected validation error, got nil")
			}
			if len(searcher.Queries) != 0 {
				t.Error("invalid request should not reach the arXiv API")
			}
		})
	}
}

func TestSearchUpstreamError(t *testing.T) {
	searcher := &testutil.FakeSearcher{Err: errors.New("connection refused")}
	svc := newTestService(searcher, &testutil.FakePaperRepository{})

	if _, err := svc.Search(context.Background(), &model.SearchRequest{Query: "quantum"}); err == nil {
		t.Error("expected error from upstream failure, got nil")
	}
}

func TestSearchByAuthor(t *testing.T) {
	searcher := &testutil.FakeSearcher{
		Result: &arxiv.Result{Entries: []arxiv.Entry{sampleEntry("1706.03762v5")}},
	}
	repo := &testutil.FakePaperRepository{}
	svc := newTestService(searcher, repo)

	resp, err := svc.SearchByAuthor(context.Background(), "Yann LeCun", 0, "")
	if err != nil {
		t.Fatalf("SearchByAuthor failed: %v", err)
	}

	// The wildcard query carries the au: prefix because the search field
	// is author
	q := searcher.LastQuery(t)
	if q.SearchQuery != "au:* AND au:yann_lecun" {
		t.Errorf("unexpected search query: %q", q.SearchQuery)
	}
	if q.SortBy != arxiv.SortSubmittedDate {
		t.Errorf("expected submittedDate sort, got %q", q.SortBy)
	}
	if q.MaxResults != 10 {
		t.Errorf("expected default of 10 results, got %d", q.MaxResults)
	}
	if resp.StorageTopic != "*_by_Yann_LeCun" {
		t.Errorf("unexpected storage topic: %q", resp.StorageTopic)
	}
}

func TestSearchByAuthorEmptyName(t *testing.T) {
	svc := newTestService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{})

	if _, err := svc.SearchByAuthor(context.Background(), "  ", 5, ""); err == nil {
		t.Error("expected error for empty author name, got nil")
	}
}

func TestSearchRecent(t *testing.T) {
	searcher := &testutil.FakeSearcher{
		Result: &arxiv.Result{Entries: []arxiv.Entry{sampleEntry("2301.12345v1")}},
	}
	svc := newTestService(searcher, &testutil.FakePaperRepository{})
	svc.now = func() time.Time {
		return time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	}

	if _, err := svc.SearchRecent(context.Background(), "diffusion models", 0, 0); err != nil {
		t.Fatalf("SearchRecent failed: %v", err)
	}

	q := searcher.LastQuery(t)
	want := "diffusion models AND submittedDate:[202306080000 TO 202306152359]"
	if q.SearchQuery != want {
		t.Errorf("expected query %q, got %q", want, q.SearchQuery)
	}
	if q.SortBy != arxiv.SortSubmittedDate || q.SortOrder != arxiv.OrderDescending {
		t.Errorf("expected submittedDate descending, got %q %q", q.SortBy, q.SortOrder)
	}
}

func TestExtractInfo(t *testing.T) {
	repo := &testutil.FakePaperRepository{}
	entry := sampleEntry("1706.03762v5")
	repo.SaveResults(context.Background(), "attention", []*model.Paper{{
		PaperID:         entry.PaperID,
		Title:           entry.Title,
		Authors:         entry.Authors,
		Summary:         entry.Summary,
		PDFURL:          entry.PDFURL,
		Published:       entry.Published,
		Updated:         entry.Updated,
		Categories:      entry.Categories,
		PrimaryCategory: entry.PrimaryCategory,
		EntryID:         entry.EntryID,
	}})
	svc := newTestService(&testutil.FakeSearcher{}, repo)

	info, err := svc.ExtractInfo(context.Background(), "1706.03762v5")
	if err != nil {
		t.Fatalf("ExtractInfo failed: %v", err)
	}
	if !strings.Contains(info, `"title": "Attention Is All You Need"`) {
		t.Errorf("expected title in extracted info, got: %s", info)
	}
	if !strings.Contains(info, `"primary_category": "cs.CL"`) {
		t.Errorf("expected primary category in extracted info, got: %s", info)
	}
}

func TestExtractInfoNotFound(t *testing.T) {
	svc := newTestService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{})

	_, err := svc.ExtractInfo(context.Background(), "9999.99999v1")
	if !errors.Is(err, repository.ErrPaperNotFound) {
		t.Errorf("expected ErrPaperNotFound, got %v", err)
	}
}

func TestExtractInfoEmptyID(t *testing.T) {
	svc := newTestService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{})

	if _, err := svc.ExtractInfo(context.Background(), ""); err == nil {
		t.Error("expected error for empty paper ID, got nil")
	}
}

func TestFoldersReport(t *testing.T) {
	repo := &testutil.FakePaperRepository{}
	repo.SaveResults(context.Background(), "machine_learning", []*model.Paper{
		{PaperID: "2301.00001v1"},
		{PaperID: "2301.00002v1"},
	})
	repo.SaveResults(context.Background(), "quantum_computing", []*model.Paper{
		{PaperID: "2302.00001v1"},
	})
	svc := newTestService(&testutil.FakeSearcher{}, repo)

	report, err := svc.FoldersReport(context.Background())
	if err != nil {
		t.Fatalf("FoldersReport failed: %v", err)
	}

	for _, want := range []string{
		"# Available Research Topics",
		"| Machine Learning | 2 papers | `@machine_learning` |",
		"| Quantum Computing | 1 papers | `@quantum_computing` |",
		"**Total Topics**: 2",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestFoldersReportEmpty(t *testing.T) {
	svc := newTestService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{})

	report, err := svc.FoldersReport(context.Background())
	if err != nil {
		t.Fatalf("FoldersReport failed: %v", err)
	}
	if !strings.Contains(report, "No research topics found.") {
		t.Errorf("expected empty-state message, got:\n%s", report)
	}
}

func TestTopicReport(t *testing.T) {
	repo := &testutil.FakePaperRepository{}
	repo.SaveResults(context.Background(), "machine_learning", []*model.Paper{
		{
			PaperID:         "2301.00001v1",
			Title:           "Scaling Laws Revisited",
			Authors:         []string{"A One", "B Two", "C Three", "D Four"},
			Summary:         strings.Repeat("a", 400),
			PDFURL:          "http://arxiv.org/pdf/2301.00001v1",
			EntryID:         "http://arxiv.org/abs/2301.00001v1",
			Published:       "2023-01-02",
			Updated:         "2023-02-01",
			PrimaryCategory: "cs.LG",
		},
	})
	svc := newTestService(&testutil.FakeSearcher{}, repo)

	// Topic names are normalized, so a human-readable name resolves
	report, err := svc.TopicReport(context.Background(), "Machine Learning")
	if err != nil {
		t.Fatalf("TopicReport failed: %v", err)
	}

	for _, want := range []string{
		"# Papers on Machine Learning",
		"**Total papers**: 1",
		"## 2023 (1 papers)",
		"### Scaling Laws Revisited",
		"A One, B Two, C Three *et al.* (4 total)",
		"(Updated: 2023-02-01)",
		"[Download PDF](http://arxiv.org/pdf/2301.00001v1)",
		strings.Repeat("a", 300) + "...",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestTopicReportMultibyteAbstract(t *testing.T) {
	// A two-byte rune straddling the truncation point must not be split
	summary := strings.Repeat("a", 299) + "é" + strings.Repeat("b", 50)

	repo := &testutil.FakePaperRepository{}
	repo.SaveResults(context.Background(), "topology", []*model.Paper{
		{
			PaperID:   "2303.00001v1",
			Title:     "Étale Cohomology Notes",
			Summary:   summary,
			Published: "2023-03-01",
		},
	})
	svc := newTestService(&testutil.FakeSearcher{}, repo)

	report, err := svc.TopicReport(context.Background(), "topology")
	if err != nil {
		t.Fatalf("TopicReport failed: %v", err)
	}

	if !utf8.ValidString(report) {
		t.Error("report contains invalid UTF-8 after truncation")
	}
	if !strings.Contains(report, strings.Repeat("a", 299)+"é...") {
		t.Error("expected abstract truncated after 300 characters")
	}
	if strings.Contains(report, "éb") {
		t.Error("expected truncation to drop text past 300 characters")
	}
}

func TestTopicReportUnknownTopic(t *testing.T) {
	svc := newTestService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{})

	_, err := svc.TopicReport(context.Background(), "nonexistent")
	if !errors.Is(err, repository.ErrTopicNotFound) {
		t.Errorf("expected ErrTopicNotFound, got %v", err)
	}
}
