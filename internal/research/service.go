// Package research orchestrates arXiv searches: it builds API queries,
// fetches results, persists every returned paper under a topic slug, and
// renders the stored catalog for the MCP resources and REST endpoints.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/arxivmcp/internal/arxiv"
	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/pkg/model"
)

// Service coordinates the arXiv client and the paper repository
type Service struct {
	searcher arxiv.Searcher
	repo     repository.PaperRepository
	logger   *slog.Logger
	now      func() time.Time // injectable clock for recent-paper windows
}

// NewService creates a research service
func NewService(searcher arxiv.Searcher, repo repository.PaperRepository, logger *slog.Logger) *Service {
	return &Service{
		searcher: searcher,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
	}
}

// Search runs a full arXiv search: validate, build the query, fetch,
// persist under the derived topic slug, and summarize.
func (s *Service) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	searchQuery := arxiv.BuildQuery(req)

	result, err := s.searcher.Search(ctx, arxiv.Query{
		SearchQuery: searchQuery,
		MaxResults:  req.MaxResults,
		SortBy:      arxiv.SortCriterion(req.SortBy),
		SortOrder:   arxiv.SortDirection(req.SortOrder),
	})
	if err != nil {
		return nil, fmt.Errorf("arXiv search failed: %w", err)
	}

	topic := model.TopicSlug(req.Query, req.AuthorSearch)

	var dateRange string
	if req.DateFrom != "" || req.DateTo != "" {
		dateRange = fmt.Sprintf("%s to %s", req.DateFrom, req.DateTo)
	}

	paperIDs := make([]string, 0, len(result.Entries))
	papers := make([]*model.Paper, 0, len(result.Entries))
	for _, entry := range result.Entries {
		paperIDs = append(paperIDs, entry.PaperID)
		papers = append(papers, &model.Paper{
			Topic:           topic,
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
			SearchParams: model.SearchParams{
				Query:        req.Query,
				SortBy:       req.SortBy,
				SearchField:  req.SearchField,
				AuthorSearch: req.AuthorSearch,
				DateRange:    dateRange,
			},
		})
	}

	newPapers, err := s.repo.SaveResults(ctx, topic, papers)
	if err != nil {
		return nil, fmt.Errorf("failed to save papers: %w", err)
	}

	s.logger.Info("search completed",
		"query", req.Query,
		"search_query", searchQuery,
		"topic", topic,
		"found", len(paperIDs),
		"new", newPapers,
	)

	return &model.SearchResponse{
		PaperIDs:    paperIDs,
		TotalFound:  len(paperIDs),
		NewPapers:   newPapers,
		SearchQuery: searchQuery,
		SearchParameters: model.SearchParameters{
			OriginalQuery: req.Query,
			SortBy:        req.SortBy,
			SortOrder:     req.SortOrder,
			SearchField:   req.SearchField,
			AuthorSearch:  req.AuthorSearch,
			DateFrom:      req.DateFrom,
			DateTo:        req.DateTo,
			MaxResults:    req.MaxResults,
		},
		StorageTopic: topic,
		Message:      fmt.Sprintf("Found %d papers (%d new). Results saved under topic '%s'", len(paperIDs), newPapers, topic),
	}, nil
}

// SearchByAuthor is the simplified author-scoped search. The wildcard
// query matches all papers; the author clause does the filtering.
func (s *Service) SearchByAuthor(ctx context.Context, authorName string, maxResults int, sortBy string) (*model.SearchResponse, error) {
	if strings.TrimSpace(authorName) == "" {
		return nil, fmt.Errorf("validation failed: author name cannot be empty")
	}
	if maxResults == 0 {
		maxResults = 10
	}
	if sortBy == "" {
		sortBy = "submittedDate"
	}

	return s.Search(ctx, &model.SearchRequest{
		Query:        "*",
		MaxResults:   maxResults,
		SortBy:       sortBy,
		SearchField:  "author",
		AuthorSearch: authorName,
	})
}

// SearchRecent searches for papers on a topic submitted within the last
// daysBack days, newest first.
func (s *Service) SearchRecent(ctx context.Context, topic string, daysBack, maxResults int) (*model.SearchResponse, error) {
	if daysBack <= 0 {
		daysBack = 7
	}
	if maxResults == 0 {
		maxResults = 10
	}

	end := s.now()
	start := end.AddDate(0, 0, -daysBack)

	return s.Search(ctx, &model.SearchRequest{
		Query:      topic,
		MaxResults: maxResults,
		SortBy:     "submittedDate",
		SortOrder:  "descending",
		DateFrom:   start.Format("20060102"),
		DateTo:     end.Format("20060102"),
	})
}

// ExtractInfo looks up a stored paper by its short arXiv ID across all
// topics and returns it as indented JSON. Returns
// repository.ErrPaperNotFound when nothing is stored under that ID.
func (s *Service) ExtractInfo(ctx context.Context, paperID string) (string, error) {
	if err := model.ValidatePaperID(paperID); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	paper, err := s.repo.GetByID(ctx, paperID)
	if err != nil {
		return "", err
	}

	// The stored record is presented in its original papers_info shape:
	// the paper fields plus the search-parameter snapshot.
	info := map[string]any{
		"title":            paper.Title,
		"authors":          paper.Authors,
		"summary":          paper.Summary,
		"pdf_url":          paper.PDFURL,
		"published":        paper.Published,
		"updated":          paper.Updated,
		"categories":       paper.Categories,
		"primary_category": paper.PrimaryCategory,
		"entry_id":         paper.EntryID,
		"search_params":    paper.SearchParams,
	}

	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode paper info: %w", err)
	}

	return string(encoded), nil
}

// ListTopics returns all stored topics with their paper counts
func (s *Service) ListTopics(ctx context.Context) ([]model.TopicInfo, error) {
	return s.repo.ListTopics(ctx)
}

// TopicPapers returns the papers stored under one topic. The topic is
// normalized the same way search derives slugs, so "machine learning"
// finds the "machine_learning" topic.
func (s *Service) TopicPapers(ctx context.Context, topic string) ([]*model.Paper, error) {
	return s.repo.ListByTopic(ctx, normalizeTopic(topic))
}

// FoldersReport renders the markdown topic index served by the
// papers://folders resource
func (s *Service) FoldersReport(ctx context.Context) (string, error) {
	topics, err := s.repo.ListTopics(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Available Research Topics\n\n")

	if len(topics) == 0 {
		b.WriteString("No research topics found.\n")
		b.WriteString("Use the `search_papers` tool to start collecting papers.\n")
		return b.String(), nil
	}

	b.WriteString("| Topic | Paper Count | Access |\n")
	b.WriteString("|-------|-------------|--------|\n")
	for _, topic := range topics {
		readableName := titleCase(strings.ReplaceAll(topic.Name, "_", " "))
		fmt.Fprintf(&b, "| %s | %d papers | `@%s` |\n", readableName, topic.PaperCount, topic.Name)
	}
	fmt.Fprintf(&b, "\n**Total Topics**: %d\n", len(topics))
	b.WriteString("\n*Use @topic_name to access papers in that topic.*\n")

	return b.String(), nil
}

// TopicReport renders the markdown paper listing served by the
// papers://{topic} resource: papers grouped by publication year, newest
// year first.
func (s *Service) TopicReport(ctx context.Context, topic string) (string, error) {
	normalized := normalizeTopic(topic)

	papers, err := s.repo.ListByTopic(ctx, normalized)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Papers on %s\n\n", titleCase(strings.ReplaceAll(normalized, "_", " ")))
	fmt.Fprintf(&b, "**Total papers**: %d\n\n", len(papers))

	byYear := make(map[string][]*model.Paper)
	var years []string
	for _, p := range papers {
		year := "unknown"
		if len(p.Published) >= 4 {
			year = p.Published[:4]
		}
		if _, seen := byYear[year]; !seen {
			years = append(years, year)
		}
		byYear[year] = append(byYear[year], p)
	}

	// Years are collected from papers already ordered published-desc, so
	// they come out newest first.
	for _, year := range years {
		fmt.Fprintf(&b, "## %s (%d papers)\n\n", year, len(byYear[year]))

		for _, p := range byYear[year] {
			fmt.Fprintf(&b, "### %s\n", p.Title)
			fmt.Fprintf(&b, "- **Paper ID**: `%s`\n", p.PaperID)
			b.WriteString("- **Authors**: " + strings.Join(truncateAuthors(p.Authors), ", "))
			if len(p.Authors) > 3 {
				fmt.Fprintf(&b, " *et al.* (%d total)", len(p.Authors))
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "- **Published**: %s", p.Published)
			if p.Updated != "" && p.Updated != p.Published {
				fmt.Fprintf(&b, " (Updated: %s)", p.Updated)
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "- **Category**: %s\n", p.PrimaryCategory)
			fmt.Fprintf(&b, "- **PDF**: [Download PDF](%s)\n", p.PDFURL)
			fmt.Fprintf(&b, "- **arXiv**: [View on arXiv](%s)\n\n", p.EntryID)

			// Truncate on rune boundaries so multi-byte text stays valid
			summary := p.Summary
			if runes := []rune(summary); len(runes) > 300 {
				summary = string(runes[:300]) + "..."
			}
			fmt.Fprintf(&b, "**Abstract**: %s\n\n", summary)
			b.WriteString("---\n\n")
		}
	}

	return b.String(), nil
}

// normalizeTopic maps a user-facing topic name to its storage slug
func normalizeTopic(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(topic), " ", "_"))
}

// truncateAuthors returns at most the first three authors
func truncateAuthors(authors []string) []string {
	if len(authors) > 3 {
		return authors[:3]
	}
	return authors
}

// titleCase capitalizes the first letter of each word (ASCII is enough
// for topic slugs)
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}
