// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the journal backend to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aldenvall/inkpress/internal/remote"
)

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	api remote.API
}

// New creates a new MCP server with all journal tools registered.
func New(api remote.API) *Server {
	s := &Server{api: api}

	s.mcp = server.NewMCPServer(
		"Inkpress",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List journal entries known to the backend, newest first."),
		mcp.WithBoolean("published", mcp.Description("When true, only published entries are returned")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Fetch a single journal entry by slug, including its markdown body and PDF location."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Entry slug (e.g. my-first-post)")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("get_entry_format",
		mcp.WithDescription("Returns the canonical journal entry source format. "+
			"Call this before writing entry markdown to ensure correct structure."),
	), s.getEntryFormat)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("inkpress://entry-format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical markdown source format for journal entries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	publishedOnly := req.GetBool("published", false)
	entries, err := s.api.ListEntries(ctx, publishedOnly)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.api.GetEntry(ctx, slug)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rec == nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntryFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "inkpress://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
