package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	daybook "github.com/unowned-ai/daybook/pkg"
)

type DaybookMCPServer struct {
	mcpServer *server.MCPServer
}

// NewDaybookMCPServer builds an MCP server with every entry tool registered
// against svc.
func NewDaybookMCPServer(svc EntryService) *DaybookMCPServer {
	s := server.NewMCPServer(
		"Daybook MCP Server",
		daybook.Version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	RegisterPingTool(s)
	RegisterGetEntryTool(s, svc)
	RegisterUpdateEntryTool(s, svc)
	RegisterCreateEntryTool(s, svc)
	RegisterListTagsTool(s, svc)

	return &DaybookMCPServer{mcpServer: s}
}

// Start runs the stdio event loop until stdin closes.
func (s *DaybookMCPServer) Start() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *DaybookMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}
