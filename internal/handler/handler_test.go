package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/arxivmcp/internal/research"
	"github.com/yourorg/arxivmcp/internal/testutil"
	"github.com/yourorg/arxivmcp/pkg/model"
	"github.com/yourorg/arxivmcp/pkg/version"
)

func newTestHandler() *Handler {
	logger := &testutil.MockLogger{}
	mcpServer := &testutil.MockMCPServer{}
	slogLogger, _ := testutil.NewTestLogger()
	svc := research.NewService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{}, slogLogger)
	return New(logger, mcpServer, svc)
}

func TestHealth(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	status, ok := response["status"].(string)
	if !ok || status != "healthy" {
		t.Errorf("expected status 'healthy', got %v", response["status"])
	}

	if _, ok := response["time"]; !ok {
		t.Error("expected time field in response")
	}
}

func TestServiceInfo(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedStatus int
		shouldDecode   bool
	}{
		{
			name:           "root path",
			path:           "/",
			expectedStatus: http.StatusOK,
			shouldDecode:   true,
		},
		{
			name:           "non-root path",
			path:           "/some/other/path",
			expectedStatus: http.StatusNotFound,
			shouldDecode:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			h.ServiceInfo(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if !tt.shouldDecode {
				return
			}

			var info model.ServiceInfo
			if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if info.Service != version.ServiceName {
				t.Errorf("expected service %q, got %q", version.ServiceName, info.Service)
			}
			if len(info.Endpoints) == 0 {
				t.Error("expected endpoints to be listed")
			}
		})
	}
}

func TestMCP(t *testing.T) {
	t.Run("delegates to MCP server", func(t *testing.T) {
		logger := &testutil.MockLogger{}
		called := false
		mcpServer := &testutil.MockMCPServer{
			ServeHTTPFunc: func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			},
		}
		slogLogger, _ := testutil.NewTestLogger()
		svc := research.NewService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{}, slogLogger)
		h := New(logger, mcpServer, svc)

		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		w := httptest.NewRecorder()

		h.MCP(w, req)

		if !called {
			t.Error("expected request to be delegated to the MCP server")
		}
	})

	t.Run("nil MCP server", func(t *testing.T) {
		logger := &testutil.MockLogger{}
		slogLogger, _ := testutil.NewTestLogger()
		svc := research.NewService(&testutil.FakeSearcher{}, &testutil.FakePaperRepository{}, slogLogger)
		h := New(logger, (*testutil.MockMCPServer)(nil), svc)

		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		w := httptest.NewRecorder()

		h.MCP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestMCPHealth(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	w := httptest.NewRecorder()

	h.MCPHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var health model.MCPHealth
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if health.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", health.Status)
	}
	if health.Protocol != version.MCPProtocol {
		t.Errorf("expected protocol %q, got %q", version.MCPProtocol, health.Protocol)
	}
	if health.Server != version.MCPServerName {
		t.Errorf("expected server %q, got %q", version.MCPServerName, health.Server)
	}
}
