package model

import (
	"github.com/yourorg/arxivmcp/pkg/version"
)

// ServiceInfo represents the service information response
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	MCPInfo   string            `json:"mcp_info"`
}

// NewServiceInfo creates a new ServiceInfo with default values
func NewServiceInfo() *ServiceInfo {
	return &ServiceInfo{
		Service: version.ServiceName,
		Version: version.Version,
		Endpoints: map[string]string{
			"search":  "POST /api/search",
			"papers":  "GET /api/papers/{id}",
			"topics":  "GET /api/topics",
			"health":  "GET /health",
			"mcp":     "POST /mcp",
			"metrics": "GET /metrics",
		},
		MCPInfo: "Supports both stdio mode (--stdio flag) and HTTP transport (POST /mcp)",
	}
}

// MCPHealth is the GET /mcp compatibility health response. Microsoft Copilot
// Studio probes MCP endpoints with GET and expects this shape.
type MCPHealth struct {
	Status   string `json:"status"`
	Protocol string `json:"protocol"`
	Message  string `json:"message"`
	Server   string `json:"server"`
	Version  string `json:"version"`
}

// NewMCPHealth creates the standard MCP health response
func NewMCPHealth() *MCPHealth {
	return &MCPHealth{
		Status:   "ok",
		Protocol: version.MCPProtocol,
		Message:  "arXiv MCP server is running",
		Server:   version.MCPServerName,
		Version:  version.Version,
	}
}
