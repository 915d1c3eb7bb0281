package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewWorkbenchMCPServer creates an MCP server with all DetectIQ workbench
// tools and resources registered. The root is the workspace directory the
// tools operate on.
func NewWorkbenchMCPServer(root string) *server.MCPServer {
	s := server.NewMCPServer(
		"detectiq",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, root)
	registerResources(s, root)

	return s
}
