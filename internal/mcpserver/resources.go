package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yourorg/arxivmcp/internal/repository"
	"github.com/yourorg/arxivmcp/internal/research"
)

// registerResources registers the papers:// resources: the topic index and
// the per-topic paper listings, both rendered as markdown.
func registerResources(s *server.MCPServer, log *slog.Logger, svc *research.Service) {
	foldersResource := mcp.NewResource("papers://folders", "Available Research Topics",
		mcp.WithResourceDescription("List all stored research topics with their paper counts"),
		mcp.WithMIMEType("text/markdown"),
	)
	s.AddResource(foldersResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		report, err := svc.FoldersReport(ctx)
		if err != nil {
			log.Error("papers://folders: failed to build report", "error", err)
			return nil, fmt.Errorf("failed to list topics: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/markdown",
				Text:     report,
			},
		}, nil
	})

	topicTemplate := mcp.NewResourceTemplate("papers://{topic}", "Topic Papers",
		mcp.WithTemplateDescription("Detailed listing of the papers stored under one research topic"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
	s.AddResourceTemplate(topicTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		topic := strings.TrimPrefix(request.Params.URI, "papers://")

		report, err := svc.TopicReport(ctx, topic)
		if err != nil {
			// An unknown topic renders as markdown too, so clients always get
			// readable content
			if errors.Is(err, repository.ErrTopicNotFound) {
				report = fmt.Sprintf("# No papers found for topic: %s\n\nTry searching for papers on this topic first.\n", topic)
			} else {
				log.Error("papers resource: failed to build report",
					"topic", topic,
					"error", err,
				)
				return nil, fmt.Errorf("failed to read topic %q: %w", topic, err)
			}
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/markdown",
				Text:     report,
			},
		}, nil
	})
}

// registerPrompts registers the generate_enhanced_search_prompt prompt
func registerPrompts(s *server.MCPServer, log *slog.Logger) {
	prompt := mcp.NewPrompt("generate_enhanced_search_prompt",
		mcp.WithPromptDescription("Generate an enhanced prompt for intelligently searching and analyzing academic papers"),
		mcp.WithArgument("topic",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("Research topic to investigate"),
		),
		mcp.WithArgument("num_papers",
			mcp.ArgumentDescription("Number of papers to find (default: 5)"),
		),
		mcp.WithArgument("search_type",
			mcp.ArgumentDescription("Type of search: comprehensive, recent, or by_author (default: comprehensive)"),
		),
		mcp.WithArgument("author",
			mcp.ArgumentDescription("Specific author to focus on (for by_author searches)"),
		),
		mcp.WithArgument("date_filter",
			mcp.ArgumentDescription("Date filtering preference"),
		),
	)

	s.AddPrompt(prompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := request.Params.Arguments

		topic := args["topic"]
		if strings.TrimSpace(topic) == "" {
			return nil, fmt.Errorf("argument 'topic' is required")
		}

		numPapers := 5
		if n, err := strconv.Atoi(args["num_papers"]); err == nil && n > 0 {
			numPapers = n
		}

		searchType := args["search_type"]
		if searchType == "" {
			searchType = "comprehensive"
		}

		text := buildResearchPrompt(topic, numPapers, searchType, args["author"])

		log.Info("generate_enhanced_search_prompt executed",
			"topic", topic,
			"num_papers", numPapers,
			"search_type", searchType,
		)

		return mcp.NewGetPromptResult(
			fmt.Sprintf("Research prompt for '%s'", topic),
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
			},
		), nil
	})
}

// buildResearchPrompt assembles the research-assistant instructions for a
// topic, specialized by search type
func buildResearchPrompt(topic string, numPapers int, searchType, author string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an AI research assistant tasked with finding and analyzing academic papers about '%s'.
Your goal is to provide comprehensive, well-organized research insights.

## INTELLIGENT SEARCH STRATEGY

Before searching, analyze the user's request and ask clarifying questions if needed:

1. **Scope Clarification**:
   - Is this a broad survey of the field or focused on specific aspects?
   - Are there particular time periods of interest?
   - Any specific methodologies or applications to focus on?

2. **Search Optimization**:
   - If the topic is very broad, ask for refinement or search multiple specific subtopics
   - For author searches, ask if they want recent work or career overview
   - For recent work, determine appropriate time window (days, months, years)

## ENHANCED SEARCH TOOLS AVAILABLE

Use these tools strategically based on the research need:

- `+"`search_papers()`"+` - Main search with extensive filtering options:
  * sort_by: "relevance", "submittedDate", "lastUpdatedDate"
  * search_field: "all", "title", "author", "abstract", "category"
  * date_from/date_to: for date filtering (YYYYMMDD format)
  * author_search: for author-specific searches

- `+"`search_by_author()`"+` - Simplified author-focused search
- `+"`search_recent_papers()`"+` - Recent papers in last N days

## SEARCH EXECUTION PLAN

1. **Primary Search**: Start with most relevant search strategy
2. **Refinement**: If results are too broad/narrow, refine with different parameters
3. **Supplementary Searches**: Add complementary searches as needed
4. **Analysis**: Extract and synthesize information from all found papers

## ANALYSIS AND PRESENTATION

For each paper found, extract and organize:
- Title and authors
- Publication/update dates
- Key contributions and innovations
- Methodologies used
- Relevance to research question
- Significance in the field

Provide a synthesis including:
- Current state of research in the field
- Major trends and developments
- Key researchers and institutions
- Research gaps and future directions
- Most impactful recent papers

## ADAPTIVE QUESTIONING

If the initial request lacks specificity, ask targeted questions like:
- "Are you interested in theoretical foundations or practical applications of %s?"
- "Would you like papers from the last year, or a broader historical perspective?"
- "Are there specific authors or research groups you'd like me to focus on?"
- "Should I prioritize recent developments or seminal papers in the field?"

Start by analyzing the request and then proceed with your optimized search strategy.`, topic, topic)

	switch {
	case searchType == "recent":
		fmt.Fprintf(&b, `

## RECENT RESEARCH FOCUS
You're looking for recent developments in %s. Use `+"`search_recent_papers()`"+` and sort by submission date.
Pay special attention to:
- Latest methodological advances
- Emerging trends and applications
- Recent experimental results
- New theoretical insights`, topic)

	case searchType == "by_author" && author != "":
		fmt.Fprintf(&b, `

## AUTHOR-FOCUSED ANALYSIS
You're analyzing work by %s on %s. Use `+"`search_by_author()`"+` and consider:
- Evolution of their research over time
- Key contributions to the field
- Collaboration patterns
- Most cited or impactful papers`, author, topic)

	case searchType == "comprehensive":
		fmt.Fprintf(&b, `

## COMPREHENSIVE SURVEY
Conduct a thorough analysis of %s using multiple search strategies:
- Start with relevance-based search for foundational papers
- Add recent papers for latest developments
- Consider different search fields (title, abstract) for completeness
- Look for review papers and surveys in the field`, topic)
	}

	fmt.Fprintf(&b, `

## EXECUTION
Begin by briefly outlining your search strategy, then execute the searches and provide your comprehensive analysis.
Target: %d papers minimum, but adjust based on result quality and relevance.

Now proceed with your intelligent search and analysis of '%s'.`, numPapers, topic)

	return b.String()
}
