package version

// Version is the current version of the arxivmcp application
// This is the single source of truth for the version number
const Version = "1.0.0"

// ServiceName is the name of the service
const ServiceName = "arxivmcp"

// MCPServerName is the server name announced to MCP clients. Existing
// client configurations reference "enhanced_research", so it stays.
const MCPServerName = "enhanced_research"

// MCPProtocol is the protocol identifier reported by the GET /mcp
// compatibility health check.
const MCPProtocol = "mcp-streamable-1.0"
