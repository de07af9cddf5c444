package arxiv

import (
	"fmt"
	"strings"

	"github.com/yourorg/arxivmcp/pkg/model"
)

// API sort criteria
const (
	SortRelevance       = "relevance"
	SortSubmittedDate   = "submittedDate"
	SortLastUpdatedDate = "lastUpdatedDate"
)

// API sort orders
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// fieldPrefixes maps friendly field names to arXiv query prefixes. Raw
// prefixes are accepted as-is so callers can pass "ti" or "title" alike.
var fieldPrefixes = map[string]string{
	"all":           "all",
	"title":         "ti",
	"ti":            "ti",
	"author":        "au",
	"au":            "au",
	"abstract":      "abs",
	"abs":           "abs",
	"category":      "cat",
	"cat":           "cat",
	"comment":       "co",
	"co":            "co",
	"journal":       "jr",
	"jr":            "jr",
	"report_number": "rn",
	"rn":            "rn",
}

// SortCriterion maps a user-supplied sort name to the arXiv API value.
// Matching is case-insensitive and ignores underscores; unknown values
// fall back to relevance.
func SortCriterion(sortBy string) string {
	normalized := strings.ReplaceAll(strings.ToLower(sortBy), "_", "")
	switch normalized {
	case "submitted", "submitteddate":
		return SortSubmittedDate
	case "updated", "lastupdated", "lastupdateddate":
		return SortLastUpdatedDate
	default:
		return SortRelevance
	}
}

// SortDirection maps a user-supplied order to the arXiv API value.
// Unknown values fall back to descending.
func SortDirection(sortOrder string) string {
	switch strings.ToLower(sortOrder) {
	case "asc", "ascending":
		return OrderAscending
	default:
		return OrderDescending
	}
}

// FieldPrefix resolves a search field name to its arXiv query prefix,
// defaulting to "all" for unknown fields.
func FieldPrefix(field string) string {
	if prefix, ok := fieldPrefixes[strings.ToLower(field)]; ok {
		return prefix
	}
	return "all"
}

// BuildQuery constructs the arXiv search_query string from a normalized
// request. Clauses are joined with AND:
//   - the main query, prefixed when a specific field is requested (a bare
//     multi-word query must NOT carry the "all:" prefix or the API rejects
//     it with HTTP 400)
//   - an au: clause for author-scoped searches (spaces to underscores,
//     lowercased)
//   - a submittedDate range with 0000/2359 time-of-day bounds and * for
//     open ends
func BuildQuery(req *model.SearchRequest) string {
	var parts []string

	if prefix := FieldPrefix(req.SearchField); prefix != "all" {
		parts = append(parts, fmt.Sprintf("%s:%s", prefix, req.Query))
	} else {
		parts = append(parts, req.Query)
	}

	if req.AuthorSearch != "" {
		cleanAuthor := strings.ToLower(strings.ReplaceAll(req.AuthorSearch, " ", "_"))
		parts = append(parts, "au:"+cleanAuthor)
	}

	switch {
	case req.DateFrom != "" && req.DateTo != "":
		parts = append(parts, fmt.Sprintf("submittedDate:[%s0000 TO %s2359]", req.DateFrom, req.DateTo))
	case req.DateFrom != "":
		parts = append(parts, fmt.Sprintf("submittedDate:[%s0000 TO *]", req.DateFrom))
	case req.DateTo != "":
		parts = append(parts, fmt.Sprintf("submittedDate:[* TO %s2359]", req.DateTo))
	}

	return strings.Join(parts, " AND ")
}
