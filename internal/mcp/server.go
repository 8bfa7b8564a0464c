// Package mcp exposes the training data to AI agents over the Model
// Context Protocol. The server runs on stdio and is pinned to a single
// tenant at startup; tools never cross tenants.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the tenant's training data.
type Server struct {
	tenantID      string
	conversations *training.Store
	corrections   *corrections.Store
	rules         *rules.Store
	mcp           *server.MCPServer
}

// NewServer creates a new MCP server scoped to one tenant.
func NewServer(tenantID string, conversations *training.Store, corrStore *corrections.Store, ruleStore *rules.Store) *Server {
	s := &Server{
		tenantID:      tenantID,
		conversations: conversations,
		corrections:   corrStore,
		rules:         ruleStore,
	}

	s.mcp = server.NewMCPServer(
		"addestra",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchRulesTool, s.handleSearchRules)
	s.mcp.AddTool(listCorrectionsTool, s.handleListCorrections)
	s.mcp.AddTool(getConversationTool, s.handleGetConversation)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
