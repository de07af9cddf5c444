package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yourorg/arxivmcp/internal/research"
	"github.com/yourorg/arxivmcp/internal/testutil"
)

func newTestService() *research.Service {
	logger, _ := testutil.NewTestLogger()
	return research.NewService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{}, logger)
}

func TestNewServer(t *testing.T) {
	logger, logHandler := testutil.NewTestLogger()

	server := NewServer(logger, newTestService())

	if server == nil {
		t.Fatal("expected server to be created")
	}

	// Verify initialization was logged
	logHandler.AssertInfoCount(t, 1)

	if len(logHandler.InfoCalls) > 0 {
		logCall := logHandler.InfoCalls[0]
		if logCall.Msg != "MCP server initialized" {
			t.Errorf("expected log message 'MCP server initialized', got %s", logCall.Msg)
		}
	}
}

func TestNewServerWithMetrics(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	m := testutil.NewTestMetrics()

	server := NewServerWithMetrics(logger, newTestService(), m)

	if server == nil {
		t.Fatal("expected server to be created")
	}
}

func TestWrapWithMetrics(t *testing.T) {
	tests := []struct {
		name    string
		handler toolHandler
	}{
		{
			name: "successful call",
			handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
		},
		{
			name: "error result",
			handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("failed"), nil
			},
		},
		{
			name: "handler error",
			handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.NewTestMetrics()

			wrapped := wrapWithMetrics("test_tool", m, tt.handler)

			result, err := wrapped(context.Background(), mcp.CallToolRequest{})

			// The wrapper must pass results and errors through untouched
			expectedResult, expectedErr := tt.handler(context.Background(), mcp.CallToolRequest{})
			if (err == nil) != (expectedErr == nil) {
				t.Errorf("wrapper changed error behavior: got %v", err)
			}
			if (result == nil) != (expectedResult == nil) {
				t.Errorf("wrapper changed result presence: got %v", result)
			}
		})
	}
}
