package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	// Fresh registry so repeated test runs don't collide
	m := NewWithRegistry("test", prometheus.NewRegistry())

	if m == nil {
		t.Fatal("NewWithRegistry() returned nil")
	}

	// Verify all metric fields are initialized
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.HTTPRequestDuration == nil {
		t.Error("HTTPRequestDuration is nil")
	}
	if m.HTTPRequestSize == nil {
		t.Error("HTTPRequestSize is nil")
	}
	if m.HTTPResponseSize == nil {
		t.Error("HTTPResponseSize is nil")
	}
	if m.HTTPRequestsInFlight == nil {
		t.Error("HTTPRequestsInFlight is nil")
	}
	if m.MCPToolCallsTotal == nil {
		t.Error("MCPToolCallsTotal is nil")
	}
	if m.MCPToolCallDuration == nil {
		t.Error("MCPToolCallDuration is nil")
	}
	if m.MCPToolCallsInFlight == nil {
		t.Error("MCPToolCallsInFlight is nil")
	}
	if m.AuthAttemptsTotal == nil {
		t.Error("AuthAttemptsTotal is nil")
	}
	if m.AuthDuration == nil {
		t.Error("AuthDuration is nil")
	}
	if m.AuthTokensVerified == nil {
		t.Error("AuthTokensVerified is nil")
	}
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration is nil")
	}
	if m.DBQueriesTotal == nil {
		t.Error("DBQueriesTotal is nil")
	}
	if m.DBConnectionsOpen == nil {
		t.Error("DBConnectionsOpen is nil")
	}
	if m.DBConnectionsIdle == nil {
		t.Error("DBConnectionsIdle is nil")
	}
	if m.DBErrorsTotal == nil {
		t.Error("DBErrorsTotal is nil")
	}
	if m.ArxivRequestsTotal == nil {
		t.Error("ArxivRequestsTotal is nil")
	}
	if m.ArxivRequestDuration == nil {
		t.Error("ArxivRequestDuration is nil")
	}
	if m.ArxivPapersFetched == nil {
		t.Error("ArxivPapersFetched is nil")
	}
	if m.BuildInfo == nil {
		t.Error("BuildInfo is nil")
	}
}

func TestSetBuildInfo(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.SetBuildInfo("1.0.0", "go1.24.8")

	metricValue := testutil.ToFloat64(m.BuildInfo.WithLabelValues("1.0.0", "go1.24.8"))
	if metricValue != 1.0 {
		t.Errorf("build_info metric value = %f, want 1.0", metricValue)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("POST", "/mcp", "200").Inc()

	healthCount := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200"))
	if healthCount != 2.0 {
		t.Errorf("health endpoint count = %f, want 2.0", healthCount)
	}

	mcpCount := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/mcp", "200"))
	if mcpCount != 1.0 {
		t.Errorf("mcp endpoint count = %f, want 1.0", mcpCount)
	}
}

func TestMCPToolMetrics(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.MCPToolCallsTotal.WithLabelValues("search_papers", "success").Inc()
	m.MCPToolCallsTotal.WithLabelValues("search_papers", "success").Inc()
	m.MCPToolCallsTotal.WithLabelValues("extract_info", "success").Inc()
	m.MCPToolCallsTotal.WithLabelValues("search_papers", "error").Inc()

	successCount := testutil.ToFloat64(m.MCPToolCallsTotal.WithLabelValues("search_papers", "success"))
	if successCount != 2.0 {
		t.Errorf("search_papers success count = %f, want 2.0", successCount)
	}

	errorCount := testutil.ToFloat64(m.MCPToolCallsTotal.WithLabelValues("search_papers", "error"))
	if errorCount != 1.0 {
		t.Errorf("search_papers error count = %f, want 1.0", errorCount)
	}

	extractCount := testutil.ToFloat64(m.MCPToolCallsTotal.WithLabelValues("extract_info", "success"))
	if extractCount != 1.0 {
		t.Errorf("extract_info count = %f, want 1.0", extractCount)
	}
}

func TestArxivMetrics(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.ArxivRequestsTotal.WithLabelValues("success").Inc()
	m.ArxivRequestsTotal.WithLabelValues("http_error").Inc()
	m.ArxivPapersFetched.Add(5)

	successCount := testutil.ToFloat64(m.ArxivRequestsTotal.WithLabelValues("success"))
	if successCount != 1.0 {
		t.Errorf("arxiv success count = %f, want 1.0", successCount)
	}

	fetched := testutil.ToFloat64(m.ArxivPapersFetched)
	if fetched != 5.0 {
		t.Errorf("papers fetched = %f, want 5.0", fetched)
	}
}

func TestInFlightGauges(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.HTTPRequestsInFlight.Inc()
	if testutil.ToFloat64(m.HTTPRequestsInFlight) != 1.0 {
		t.Errorf("in_flight after Inc() = %f, want 1.0", testutil.ToFloat64(m.HTTPRequestsInFlight))
	}

	m.HTTPRequestsInFlight.Inc()
	if testutil.ToFloat64(m.HTTPRequestsInFlight) != 2.0 {
		t.Errorf("in_flight after second Inc() = %f, want 2.0", testutil.ToFloat64(m.HTTPRequestsInFlight))
	}

	m.HTTPRequestsInFlight.Dec()
	m.HTTPRequestsInFlight.Dec()
	if testutil.ToFloat64(m.HTTPRequestsInFlight) != 0.0 {
		t.Errorf("in_flight after Dec() twice = %f, want 0.0", testutil.ToFloat64(m.HTTPRequestsInFlight))
	}
}
