// Package mcpserver exposes the research service over the Model Context
// Protocol: four search tools, the papers:// resources, and a research
// prompt.
package mcpserver

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yourorg/arxivmcp/internal/research"
	"github.com/yourorg/arxivmcp/pkg/metrics"
	"github.com/yourorg/arxivmcp/pkg/version"
)

// toolHandler is the mcp-go tool handler signature
type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// NewServer creates and configures a new MCP server with paper search tools
func NewServer(log *slog.Logger, svc *research.Service) *server.MCPServer {
	return newServer(log, svc, func(_ string, h toolHandler) toolHandler { return h })
}

// NewServerWithMetrics creates and configures a new MCP server with metrics tracking
func NewServerWithMetrics(log *slog.Logger, svc *research.Service, m *metrics.Metrics) *server.MCPServer {
	return newServer(log, svc, func(toolName string, h toolHandler) toolHandler {
		return wrapWithMetrics(toolName, m, h)
	})
}

func newServer(log *slog.Logger, svc *research.Service, wrap func(string, toolHandler) toolHandler) *server.MCPServer {
	// Create server with capabilities and options
	mcpServer := server.NewMCPServer(
		version.MCPServerName,
		version.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
		server.WithRecovery(),
	)

	// Register search_papers tool
	searchPapersTool := mcp.NewTool("search_papers",
		mcp.WithDescription("Search for papers on arXiv with advanced filtering and store the results"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The main search term or topic"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to retrieve (default: 5)"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Sort order: relevance, submittedDate, or lastUpdatedDate (default: relevance)"),
		),
		mcp.WithString("sort_order",
			mcp.Description("Sort direction: ascending or descending (default: descending)"),
		),
		mcp.WithString("search_field",
			mcp.Description("Field to search: all, title, author, abstract, or category (default: all)"),
		),
		mcp.WithString("date_from",
			mcp.Description("Start date for filtering in YYYYMMDD format"),
		),
		mcp.WithString("date_to",
			mcp.Description("End date for filtering in YYYYMMDD format"),
		),
		mcp.WithString("author_search",
			mcp.Description("Author name to additionally filter by"),
		),
	)
	mcpServer.AddTool(searchPapersTool, wrap("search_papers", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchPapers(ctx, request, log, svc)
	}))

	// Register search_by_author tool
	searchByAuthorTool := mcp.NewTool("search_by_author",
		mcp.WithDescription("Search for papers by a specific author"),
		mcp.WithString("author_name",
			mcp.Required(),
			mcp.Description("Name of the author to search for"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to retrieve (default: 10)"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Sort order: relevance, submittedDate, or lastUpdatedDate (default: submittedDate)"),
		),
	)
	mcpServer.AddTool(searchByAuthorTool, wrap("search_by_author", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchByAuthor(ctx, request, log, svc)
	}))

	// Register search_recent_papers tool
	searchRecentTool := mcp.NewTool("search_recent_papers",
		mcp.WithDescription("Search for recent papers on a topic, newest first"),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("The topic to search for"),
		),
		mcp.WithNumber("days_back",
			mcp.Description("How many days back to search (default: 7)"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to retrieve (default: 10)"),
		),
	)
	mcpServer.AddTool(searchRecentTool, wrap("search_recent_papers", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchRecentPapers(ctx, request, log, svc)
	}))

	// Register extract_info tool
	extractInfoTool := mcp.NewTool("extract_info",
		mcp.WithDescription("Get stored information about a paper by its short arXiv ID"),
		mcp.WithString("paper_id",
			mcp.Required(),
			mcp.Description("The short arXiv paper ID, e.g. 2301.12345v1"),
		),
	)
	mcpServer.AddTool(extractInfoTool, wrap("extract_info", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleExtractInfo(ctx, request, log, svc)
	}))

	registerResources(mcpServer, log, svc)
	registerPrompts(mcpServer, log)

	log.Info("MCP server initialized",
		"name", version.MCPServerName,
		"version", version.Version,
		"tools", []string{"search_papers", "search_by_author", "search_recent_papers", "extract_info"},
	)

	return mcpServer
}

// wrapWithMetrics wraps a tool handler with metrics tracking
func wrapWithMetrics(toolName string, m *metrics.Metrics, handler toolHandler) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		// Track in-flight tool calls
		m.MCPToolCallsInFlight.Inc()
		defer m.MCPToolCallsInFlight.Dec()

		// Execute the tool handler
		result, err := handler(ctx, request)

		// Record metrics
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		m.MCPToolCallsTotal.WithLabelValues(toolName, status).Inc()
		m.MCPToolCallDuration.WithLabelValues(toolName).Observe(duration)

		return result, err
	}
}
