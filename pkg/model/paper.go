package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Paper represents an arXiv paper persisted under a search topic
type Paper struct {
	ID              int64        `json:"id"`
	Topic           string       `json:"topic"`
	PaperID         string       `json:"paper_id"`
	Title           string       `json:"title"`
	Authors         []string     `json:"authors"`
	Summary         string       `json:"summary"`
	PDFURL          string       `json:"pdf_url"`
	Published       string       `json:"published"`
	Updated         string       `json:"updated"`
	Categories      []string     `json:"categories"`
	PrimaryCategory string       `json:"primary_category"`
	EntryID         string       `json:"entry_id"`
	SearchParams    SearchParams `json:"search_params"`
	CreatedAt       time.Time    `json:"created_at"`
}

// SearchParams is the snapshot of search parameters stored with each paper
type SearchParams struct {
	Query        string `json:"query"`
	SortBy       string `json:"sort_by"`
	SearchField  string `json:"search_field"`
	AuthorSearch string `json:"author_search,omitempty"`
	DateRange    string `json:"date_range,omitempty"`
}

// SearchRequest represents a paper search, from the REST body or MCP tool arguments
type SearchRequest struct {
	Query        string `json:"query"`
	MaxResults   int    `json:"max_results,omitempty"`
	SortBy       string `json:"sort_by,omitempty"`
	SortOrder    string `json:"sort_order,omitempty"`
	SearchField  string `json:"search_field,omitempty"`
	DateFrom     string `json:"date_from,omitempty"`
	DateTo       string `json:"date_to,omitempty"`
	AuthorSearch string `json:"author_search,omitempty"`
}

// SearchResponse summarizes a completed search
type SearchResponse struct {
	PaperIDs         []string         `json:"paper_ids"`
	TotalFound       int              `json:"total_found"`
	NewPapers        int              `json:"new_papers"`
	SearchQuery      string           `json:"search_query"`
	SearchParameters SearchParameters `json:"search_parameters"`
	StorageTopic     string           `json:"storage_topic"`
	Message          string           `json:"message"`
}

// SearchParameters echoes the effective request parameters back to the caller
type SearchParameters struct {
	OriginalQuery string `json:"original_query"`
	SortBy        string `json:"sort_by"`
	SortOrder     string `json:"sort_order"`
	SearchField   string `json:"search_field"`
	AuthorSearch  string `json:"author_search,omitempty"`
	DateFrom      string `json:"date_from,omitempty"`
	DateTo        string `json:"date_to,omitempty"`
	MaxResults    int    `json:"max_results"`
}

// TopicInfo describes one stored topic and how many papers it holds
type TopicInfo struct {
	Name       string `json:"name"`
	PaperCount int    `json:"paper_count"`
}

// TopicListResponse represents the list of stored topics
type TopicListResponse struct {
	Topics []TopicInfo `json:"topics"`
}

// TopicPapersResponse represents the papers stored under one topic
type TopicPapersResponse struct {
	Topic  string   `json:"topic"`
	Count  int      `json:"count"`
	Papers []*Paper `json:"papers"`
}

// Validation errors
var (
	ErrEmptyQuery        = errors.New("search query cannot be empty")
	ErrQueryTooLong      = errors.New("search query must be 512 characters or less")
	ErrInvalidMaxResults = errors.New("max_results must be between 1 and 2000")
	ErrInvalidDate       = errors.New("date must be in YYYYMMDD format")
	ErrInvalidDateRange  = errors.New("date_from cannot be after date_to")
	ErrEmptyPaperID      = errors.New("paper ID cannot be empty")
)

// DefaultMaxResults is applied when a search does not specify max_results
const DefaultMaxResults = 5

// MaxResultsLimit caps a single search; the arXiv API slows down sharply
// beyond this
const MaxResultsLimit = 2000

// Normalize trims the request fields and applies defaults
func (r *SearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.SortBy = strings.TrimSpace(r.SortBy)
	r.SortOrder = strings.TrimSpace(r.SortOrder)
	r.SearchField = strings.TrimSpace(r.SearchField)
	r.DateFrom = strings.TrimSpace(r.DateFrom)
	r.DateTo = strings.TrimSpace(r.DateTo)
	r.AuthorSearch = strings.TrimSpace(r.AuthorSearch)

	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.SortBy == "" {
		r.SortBy = "relevance"
	}
	if r.SortOrder == "" {
		r.SortOrder = "descending"
	}
	if r.SearchField == "" {
		r.SearchField = "all"
	}
}

// Validate validates a SearchRequest
func (r *SearchRequest) Validate() error {
	if err := ValidateQuery(r.Query); err != nil {
		return err
	}
	if r.MaxResults < 1 || r.MaxResults > MaxResultsLimit {
		return ErrInvalidMaxResults
	}
	if err := ValidateDate(r.DateFrom); err != nil {
		return err
	}
	if err := ValidateDate(r.DateTo); err != nil {
		return err
	}
	if r.DateFrom != "" && r.DateTo != "" && r.DateFrom > r.DateTo {
		return ErrInvalidDateRange
	}
	return nil
}

// ValidateQuery validates the free-text search query
func ValidateQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}
	if len(query) > 512 {
		return ErrQueryTooLong
	}
	return nil
}

// ValidateDate validates an optional YYYYMMDD date string
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if len(date) != 8 {
		return fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	return nil
}

// ValidatePaperID validates a short arXiv paper ID (e.g. "2301.12345v1")
func ValidatePaperID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyPaperID
	}
	return nil
}

// TopicSlug derives the storage topic for a search: lowercase, spaces and
// slashes become underscores, capped at 50 characters, with a "_by_<author>"
// suffix for author-scoped searches. Existing stored topics depend on this
// exact derivation.
func TopicSlug(query, authorSearch string) string {
	slug := strings.ToLower(query)
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "/", "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	// The author suffix keeps the author's casing; only the query part is
	// lowercased
	if authorSearch != "" {
		slug += "_by_" + strings.ReplaceAll(authorSearch, " ", "_")
	}
	return slug
}
