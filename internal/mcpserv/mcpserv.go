// Package mcpserv exposes docforge operations as MCP tools over stdio,
// so agent runtimes can drive generation without the HTTP transport.
package mcpserv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/docforge/api"
)

// Processor runs one document request end to end. *pipeline.Pipeline
// satisfies it.
type Processor interface {
	Process(ctx context.Context, req *api.Request, source string) error
}

// Resolver turns a template address into a local path. *resolve.Resolver
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (string, error)
}

// Server adapts the pipeline and the resolver to MCP tools.
type Server struct {
	proc Processor
	res  Resolver
	mcp  *server.MCPServer
}

// New builds the MCP server with both tools registered.
func New(proc Processor, res Resolver, version string) *Server {
	s := &Server{proc: proc, res: res}

	m := server.NewMCPServer("docforge", version)

	m.AddTool(mcp.NewTool("generate_documents",
		mcp.WithDescription("Process a document request tree: resolve templates, render every template item, and return the tree with result locations filled in."),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The document request tree as JSON."),
		),
	), s.handleGenerate)

	m.AddTool(mcp.NewTool("resolve_template",
		mcp.WithDescription("Resolve a template address to a local file path, downloading and caching when needed."),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Template address: blob@bucket:key, http@URL, https@URL, file@/path, or a bare local name."),
		),
	), s.handleResolve)

	s.mcp = m
	return s
}

// ServeStdio blocks serving MCP on stdin/stdout until the peer hangs up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Tool failures are reported as tool results, not protocol errors: the
// peer gets the taxonomy message and the session stays up.
func (s *Server) handleGenerate(ctx context.Context, call mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := call.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var req api.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("bad request json: %v", err)), nil
	}

	if err := s.proc.Process(ctx, &req, "mcp"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := json.Marshal(&req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleResolve(ctx context.Context, call mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	addr, err := call.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path, err := s.res.Resolve(ctx, addr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(path), nil
}
