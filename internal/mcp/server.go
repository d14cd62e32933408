// Package mcp exposes the document Q&A engine to agent clients over
// the Model Context Protocol on stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes document question answering
// and retrieval tools.
type Server struct {
	engine *rag.Engine
	store  *docstore.Store
	mcp    *server.MCPServer
}

// NewServer creates an MCP server over the given engine and store.
func NewServer(engine *rag.Engine, store *docstore.Store) *Server {
	s := &Server{
		engine: engine,
		store:  store,
	}

	s.mcp = server.NewMCPServer(
		"docqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
