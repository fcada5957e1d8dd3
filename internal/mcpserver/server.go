// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes registry queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quarry/internal/apperr"
	"github.com/starford/quarry/internal/registry"
	"github.com/starford/quarry/internal/resolve"
)

// QueryFormatURI names the query format resource.
const QueryFormatURI = "quarry://query-format"

// maxTextSize caps readme and doc pages returned to the model.
const maxTextSize = 1 << 20

// Server wraps the MCP server with registry tools.
type Server struct {
	mcp *server.MCPServer
	svc *registry.Service
}

// New creates a new MCP server with all registry tools registered.
func New(svc *registry.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Quarry",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_package_version",
		mcp.WithDescription("Resolve one version and target of a package and return its metadata, "+
			"its readme, or one documentation page. Read "+QueryFormatURI+" for the selector syntax."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Package name (scope/name)")),
		mcp.WithString("version", mcp.Description("Version or \"latest\" (default latest)")),
		mcp.WithString("target", mcp.Description("Target kind or \"any\" (default any)")),
		mcp.WithString("doc", mcp.Description("Optional documentation page name")),
		mcp.WithBoolean("readme", mcp.Description("Return the readme instead of metadata")),
	), s.getPackageVersion)

	s.mcp.AddTool(mcp.NewTool("list_package_versions",
		mcp.WithDescription("List every published version of a package, newest first, with its targets."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Package name (scope/name)")),
	), s.listPackageVersions)

	s.mcp.AddTool(mcp.NewTool("search_packages",
		mcp.WithDescription("Full-text search through package names, descriptions and authors."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchPackages)

	s.mcp.AddTool(mcp.NewTool("get_query_format",
		mcp.WithDescription("Returns the package query format: names, version and target selectors, doc lookup."),
	), s.getQueryFormat)

	s.mcp.AddResource(
		mcp.NewResource(QueryFormatURI, "Package Query Format",
			mcp.WithResourceDescription("How to name packages and select versions, targets and docs."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQueryFormatResource,
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

// toolError turns a service error into a tool error result. Internal
// failures are reported without detail.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError("invalid input: " + err.Error())
	}
	return mcp.NewToolResultError("internal error")
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getPackageVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q := registry.Query{
		Name:    name,
		Version: req.GetString("version", "latest"),
		Target:  req.GetString("target", "any"),
		Doc:     req.GetString("doc", ""),
	}
	if req.GetBool("readme", false) {
		q.Accept = resolve.MediaReadme
	}

	res, err := s.svc.GetPackageVersion(ctx, q)
	if err != nil {
		return toolError(err), nil
	}
	if res.Body == nil {
		return jsonResult(res.Metadata), nil
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, maxTextSize+1))
	if err != nil {
		return toolError(err), nil
	}
	if len(data) > maxTextSize {
		return mcp.NewToolResultError(fmt.Sprintf("content too large (max %d bytes)", maxTextSize)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPackageVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.svc.ListVersions(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) searchPackages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getQueryFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QueryFormat), nil
}

func (s *Server) readQueryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      QueryFormatURI,
			MIMEType: "text/markdown",
			Text:     QueryFormat,
		},
	}, nil
}
