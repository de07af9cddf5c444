package model

import (
	"testing"

	"github.com/yourorg/arxivmcp/pkg/version"
)

func TestNewServiceInfo(t *testing.T) {
	info := NewServiceInfo()

	if info.Service != version.ServiceName {
		t.Errorf("expected service %q, got %q", version.ServiceName, info.Service)
	}
	if info.Version != version.Version {
		t.Errorf("expected version %q, got %q", version.Version, info.Version)
	}

	for _, endpoint := range []string{"search", "papers", "topics", "health", "mcp", "metrics"} {
		if _, ok := info.Endpoints[endpoint]; !ok {
			t.Errorf("expected %q endpoint to be listed", endpoint)
		}
	}
}

func TestNewMCPHealth(t *testing.T) {
	health := NewMCPHealth()

	if health.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", health.Status)
	}
	if health.Protocol != version.MCPProtocol {
		t.Errorf("expected protocol %q, got %q", version.MCPProtocol, health.Protocol)
	}
	if health.Server != version.MCPServerName {
		t.Errorf("expected server %q, got %q", version.MCPServerName, health.Server)
	}
	if health.Version != version.Version {
		t.Errorf("expected version %q, got %q", version.Version, health.Version)
	}
}
