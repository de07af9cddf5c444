package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/internal/research"
	"github.com/yourorg/arxivmcp/pkg/model"
)

// handleSearchPapers handles the search_papers tool
func handleSearchPapers(ctx context.Context, request mcp.CallToolRequest, log *slog.Logger, svc *research.Service) (*mcp.CallToolResult, error) {
	// Extract arguments with validation
	query := request.GetString("query", "")
	if query == "" {
		log.Warn("search_papers: missing required parameter", "parameter", "query")
		return mcp.NewToolResultError("Parameter 'query' is required"), nil
	}

	req := &model.SearchRequest{
		Query:        query,
		MaxResults:   int(request.GetFloat("max_results", 0)),
		SortBy:       request.GetString("sort_by", ""),
		SortOrder:    request.GetString("sort_order", ""),
		SearchField:  request.GetString("search_field", ""),
		DateFrom:     request.GetString("date_from", ""),
		DateTo:       request.GetString("date_to", ""),
		AuthorSearch: request.GetString("author_search", ""),
	}

	resp, err := svc.Search(ctx, req)
	if err != nil {
		log.Error("search_papers: search failed",
			"query", query,
			"error", err,
		)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	log.Info("search_papers executed",
		"query", query,
		"found", resp.TotalFound,
		"new", resp.NewPapers,
		"storage_topic", resp.StorageTopic,
	)

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		log.Error("search_papers: failed to marshal response", "error", err)
		return mcp.NewToolResultError("Failed to format response"), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// handleSearchByAuthor handles the search_by_author tool
func handleSearchByAuthor(ctx context.Context, request mcp.CallToolRequest, log *slog.Logger, svc *research.Service) (*mcp.CallToolResult, error) {
	// Extract arguments
	authorName := request.GetString("author_name", "")
	if authorName == "" {
		log.Warn("search_by_author: missing required parameter", "parameter", "author_name")
		return mcp.NewToolResultError("Parameter 'author_name' is required"), nil
	}

	maxResults := int(request.GetFloat("max_results", 0))
	sortBy := request.GetString("sort_by", "")

	resp, err := svc.SearchByAuthor(ctx, authorName, maxResults, sortBy)
	if err != nil {
		log.Error("search_by_author: search failed",
			"author", authorName,
			"error", err,
		)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	log.Info("search_by_author executed",
		"author", authorName,
		"found", resp.TotalFound,
		"new", resp.NewPapers,
	)

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		log.Error("search_by_author: failed to marshal response", "error", err)
		return mcp.NewToolResultError("Failed to format response"), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// handleSearchRecentPapers handles the search_recent_papers tool
func handleSearchRecentPapers(ctx context.Context, request mcp.CallToolRequest, log *slog.Logger, svc *research.Service) (*mcp.CallToolResult, error) {
	// Extract arguments
	topic := request.GetString("topic", "")
	if topic == "" {
		log.Warn("search_recent_papers: missing required parameter", "parameter", "topic")
		return mcp.NewToolResultError("Parameter 'topic' is required"), nil
	}

	daysBack := int(request.GetFloat("days_back", 0))
	maxResults := int(request.GetFloat("max_results", 0))

	resp, err := svc.SearchRecent(ctx, topic, daysBack, maxResults)
	if err != nil {
		log.Error("search_recent_papers: search failed",
			"topic", topic,
			"days_back", daysBack,
			"error", err,
		)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	log.Info("search_recent_papers executed",
		"topic", topic,
		"days_back", daysBack,
		"found", resp.TotalFound,
		"new", resp.NewPapers,
	)

	responseJSON, err := json.Marshal(resp)
	if err != nil {
		log.Error("search_recent_papers: failed to marshal response", "error", err)
		return mcp.NewToolResultError("Failed to format response"), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// handleExtractInfo handles the extract_info tool
func handleExtractInfo(ctx context.Context, request mcp.CallToolRequest, log *slog.Logger, svc *research.Service) (*mcp.CallToolResult, error) {
	// Extract arguments
	paperID := request.GetString("paper_id", "")
	if paperID == "" {
		log.Warn("extract_info: missing required parameter", "parameter", "paper_id")
		return mcp.NewToolResultError("Parameter 'paper_id' is required"), nil
	}

	info, err := svc.ExtractInfo(ctx, paperID)
	if err != nil {
		// An unknown paper is a normal outcome, reported as plain text
		if errors.Is(err, repository.ErrPaperNotFound) {
			log.Info("extract_info: paper not found", "paper_id", paperID)
			return mcp.NewToolResultText(fmt.Sprintf("There's no saved information related to paper %s.", paperID)), nil
		}
		log.Error("extract_info: lookup failed",
			"paper_id", paperID,
			"error", err,
		)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to extract paper info: %v", err)), nil
	}

	log.Info("extract_info executed", "paper_id", paperID)

	return mcp.NewToolResultText(info), nil
}
