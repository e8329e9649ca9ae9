// Package mcp exposes the course tools over the Model Context Protocol.
//
// Any MCP client (an editor, a desktop assistant) can search course content
// and fetch course outlines through a stdio transport, backed by the same
// store the HTTP API uses. Tool names, descriptions, and result text match
// the in-process tools exactly, so answers read the same regardless of
// which surface asked.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lectern/lectern/internal/tools"
)

// Store is the catalog surface the MCP tools need. *store.Store satisfies it.
type Store interface {
	tools.Searcher
	tools.OutlineStore
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Store   Store
	Logger  *slog.Logger
}

// Server wraps the MCP SDK server around the course tools.
type Server struct {
	mcpServer *mcp.Server
	search    *tools.SearchTool
	outline   *tools.OutlineTool
	logger    *slog.Logger
}

// NewServer creates an MCP server with both course tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		search:    tools.NewSearchTool(cfg.Store),
		outline:   tools.NewOutlineTool(cfg.Store),
		logger:    logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run starts the MCP server on the given transport. Blocking; returns when
// ctx is canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// SearchInput is the input schema for search_course_content.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"Course title (partial matches work, e.g. 'MCP', 'Introduction')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// OutlineInput is the input schema for get_course_outline.
type OutlineInput struct {
	CourseName string `json:"course_name" jsonschema:"Course title to get the outline for (partial matches work)"`
}

func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search tool: %w", err)
	}
	searchDef := s.search.Definition()
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        searchDef.Name,
		Description: searchDef.Description,
		InputSchema: searchSchema,
	}, s.SearchCourseContent)

	outlineSchema, err := jsonschema.For[OutlineInput](nil)
	if err != nil {
		return fmt.Errorf("schema for outline tool: %w", err)
	}
	outlineDef := s.outline.Definition()
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        outlineDef.Name,
		Description: outlineDef.Description,
		InputSchema: outlineSchema,
	}, s.GetCourseOutline)

	return nil
}

// SearchCourseContent handles the search_course_content MCP tool call.
func (s *Server) SearchCourseContent(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	args := map[string]any{"query": in.Query}
	if in.CourseName != "" {
		args["course_name"] = in.CourseName
	}
	if in.LessonNumber != nil {
		args["lesson_number"] = *in.LessonNumber
	}
	s.logger.Debug("mcp tool call", "tool", "search_course_content", "query", in.Query)
	return textResult(s.search.Execute(ctx, args)), nil, nil
}

// GetCourseOutline handles the get_course_outline MCP tool call.
func (s *Server) GetCourseOutline(ctx context.Context, _ *mcp.CallToolRequest, in OutlineInput) (*mcp.CallToolResult, any, error) {
	s.logger.Debug("mcp tool call", "tool", "get_course_outline", "course", in.CourseName)
	return textResult(s.outline.Execute(ctx, map[string]any{"course_name": in.CourseName})), nil, nil
}

// textResult wraps tool output for MCP. The course tools report problems as
// model-readable text rather than protocol errors, so IsError stays false;
// "no results" and "no such course" are answers, not failures.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
