package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourorg/arxivmcp/pkg/metrics"
	"github.com/yourorg/arxivmcp/pkg/version"
)

// Entry is one paper returned by the arXiv API
type Entry struct {
	PaperID         string   // short ID, e.g. "2301.12345v1"
	EntryID         string   // full abs URL
	Title           string
	Summary         string
	Authors         []string
	Categories      []string
	PrimaryCategory string
	Published       string // YYYY-MM-DD
	Updated         string // YYYY-MM-DD
	PDFURL          string
}

// Query is a fully resolved arXiv API query. SortBy and SortOrder must be
// API values (see SortCriterion / SortDirection).
type Query struct {
	SearchQuery string
	Start       int
	MaxResults  int
	SortBy      string
	SortOrder   string
}

// Result holds the decoded feed for one query
type Result struct {
	TotalResults int
	Entries      []Entry
}

// Searcher is the interface the research service depends on
type Searcher interface {
	Search(ctx context.Context, q Query) (*Result, error)
}

// Config holds arXiv client configuration
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RateInterval time.Duration // minimum delay between API requests
}

// DefaultConfig returns the standard client configuration. The 3 second
// rate interval follows the arXiv API terms of use.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://export.arxiv.org/api/query",
		Timeout:      30 * time.Second,
		RateInterval: 3 * time.Second,
	}
}

// Client queries the arXiv Atom API with client-side rate limiting
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates an arXiv API client. metrics may be nil in stdio mode
// before the collector is set up, but callers normally pass one.
func NewClient(cfg *Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RateInterval), 1)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
	}
}

// Atom feed wire types. The arXiv API serves Atom 1.0 with arxiv-namespace
// extensions; the decoder matches on local names so the namespaces don't
// need explicit handling.
type feed struct {
	XMLName      xml.Name    `xml:"feed"`
	TotalResults int         `xml:"totalResults"`
	Entries      []feedEntry `xml:"entry"`
}

type feedEntry struct {
	ID              string         `xml:"id"`
	Title           string         `xml:"title"`
	Summary         string         `xml:"summary"`
	Published       string         `xml:"published"`
	Updated         string         `xml:"updated"`
	Authors         []feedAuthor   `xml:"author"`
	Categories      []feedCategory `xml:"category"`
	PrimaryCategory feedCategory   `xml:"primary_category"`
	Links           []feedLink     `xml:"link"`
}

type feedAuthor struct {
	Name string `xml:"name"`
}

type feedCategory struct {
	Term string `xml:"term,attr"`
}

type feedLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// Search executes one query against the arXiv API. It blocks on the rate
// limiter first, so callers should pass a context with a deadline.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		c.countRequest("rate_limit_canceled")
		return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
	}

	reqURL := c.buildURL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.countRequest("request_error")
		return nil, fmt.Errorf("failed to build arXiv request: %w", err)
	}
	req.Header.Set("User-Agent", version.ServiceName+"/"+version.Version)

	c.logger.Debug("querying arXiv API",
		"search_query", q.SearchQuery,
		"max_results", q.MaxResults,
		"sort_by", q.SortBy,
		"sort_order", q.SortOrder,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countRequest("transport_error")
		return nil, fmt.Errorf("arXiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countRequest("http_error")
		return nil, fmt.Errorf("arXiv API returned status %d for query %q", resp.StatusCode, q.SearchQuery)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		c.countRequest("decode_error")
		return nil, fmt.Errorf("failed to decode arXiv feed: %w", err)
	}

	result := &Result{
		TotalResults: f.TotalResults,
		Entries:      make([]Entry, 0, len(f.Entries)),
	}
	for _, e := range f.Entries {
		result.Entries = append(result.Entries, convertEntry(e))
	}

	c.countRequest("success")
	if c.metrics != nil {
		c.metrics.ArxivRequestDuration.Observe(time.Since(start).Seconds())
		c.metrics.ArxivPapersFetched.Add(float64(len(result.Entries)))
	}

	c.logger.Info("arXiv query completed",
		"search_query", q.SearchQuery,
		"results", len(result.Entries),
		"total_results", f.TotalResults,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// buildURL assembles the API request URL
func (c *Client) buildURL(q Query) string {
	params := url.Values{}
	params.Set("search_query", q.SearchQuery)
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("max_results", strconv.Itoa(q.MaxResults))
	if q.SortBy != "" {
		params.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		params.Set("sortOrder", q.SortOrder)
	}
	return c.baseURL + "?" + params.Encode()
}

func (c *Client) countRequest(status string) {
	if c.metrics != nil {
		c.metrics.ArxivRequestsTotal.WithLabelValues(status).Inc()
	}
}

// convertEntry maps a wire entry to the exported form
func convertEntry(e feedEntry) Entry {
	entry := Entry{
		PaperID:         ShortID(e.ID),
		EntryID:         e.ID,
		Title:           collapseWhitespace(e.Title),
		Summary:         collapseWhitespace(e.Summary),
		Published:       dateOnly(e.Published),
		Updated:         dateOnly(e.Updated),
		PrimaryCategory: e.PrimaryCategory.Term,
	}

	for _, a := range e.Authors {
		entry.Authors = append(entry.Authors, a.Name)
	}
	for _, cat := range e.Categories {
		entry.Categories = append(entry.Categories, cat.Term)
	}

	// The updated timestamp falls back to published, matching what clients
	// stored historically.
	if entry.Updated == "" {
		entry.Updated = entry.Published
	}

	for _, l := range e.Links {
		if l.Title == "pdf" {
			entry.PDFURL = l.Href
			break
		}
	}
	// Older entries lack a titled pdf link; derive it from the abs URL
	if entry.PDFURL == "" && entry.EntryID != "" {
		entry.PDFURL = strings.Replace(entry.EntryID, "/abs/", "/pdf/", 1)
	}

	return entry
}

// ShortID extracts the short paper ID from a full entry URL,
// e.g. "http://arxiv.org/abs/2301.12345v1" -> "2301.12345v1"
func ShortID(entryID string) string {
	if idx := strings.LastIndex(entryID, "/abs/"); idx >= 0 {
		return entryID[idx+len("/abs/"):]
	}
	return entryID
}

// collapseWhitespace normalizes the newline-wrapped text arXiv feeds carry
// in titles and summaries
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dateOnly truncates an RFC3339 timestamp to its date part
func dateOnly(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
