// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Daymark day index to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daymark/internal/dayservice"
)

// DateSourcesURI is the resource describing how notes get their dates.
const DateSourcesURI = "daymark://date-sources"

// Server wraps the MCP server with Daymark tools.
type Server struct {
	mcp *server.MCPServer
	svc *dayservice.Service
}

// New creates a new MCP server with all Daymark tools registered.
func New(svc *dayservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Daymark",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_day_items",
		mcp.WithDescription("List the notes and tagged lines dated on a day."),
		mcp.WithString("day", mcp.Required(), mcp.Description("Day as YYYY-MM-DD, or \"today\"")),
		mcp.WithNumber("shift", mcp.Description("Days to move from day, e.g. -1 for the day before")),
	), s.listDayItems)

	s.mcp.AddTool(mcp.NewTool("list_days",
		mcp.WithDescription("List the days holding at least one item, with item counts."),
		mcp.WithString("from", mcp.Description("First day (YYYY-MM-DD), open if empty")),
		mcp.WithString("to", mcp.Description("Last day (YYYY-MM-DD), open if empty")),
	), s.listDays)

	s.mcp.AddTool(mcp.NewTool("create_day_note",
		mcp.WithDescription("Create a note for a day in the configured new-note folder. "+
			"Read the "+DateSourcesURI+" resource to see how the note will be dated."),
		mcp.WithString("day", mcp.Required(), mcp.Description("Day as YYYY-MM-DD, or \"today\"")),
		mcp.WithString("content", mcp.Description("Markdown body of the note")),
	), s.createDayNote)

	s.mcp.AddTool(mcp.NewTool("index_status",
		mcp.WithDescription("Report the active date source and the size of the day index."),
	), s.indexStatus)

	s.mcp.AddTool(mcp.NewTool("rebuild_index",
		mcp.WithDescription("Rebuild the day index from every note in the vault."),
	), s.rebuildIndex)

	s.mcp.AddTool(mcp.NewTool("set_date_source",
		mcp.WithDescription("Switch how notes are dated and rebuild the index."),
		mcp.WithString("mode", mcp.Required(),
			mcp.Description("metadata-field, filename or inline-tag-pattern"),
			mcp.Enum("metadata-field", "filename", "inline-tag-pattern"),
		),
	), s.setDateSource)

	s.mcp.AddResource(
		mcp.NewResource(DateSourcesURI, "Date Sources",
			mcp.WithResourceDescription("How Daymark assigns notes and tagged lines to days."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDateSourcesResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDayItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := req.RequireString("day")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ItemsForDay(ctx, day, req.GetInt("shift", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items.Items) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("nothing on %s", items.Day)), nil
	}
	lines := make([]string, len(items.Items))
	for i, it := range items.Items {
		lines[i] = fmt.Sprintf("%s\t%s", it.DisplayName, it.Path)
		if it.Line != nil {
			lines[i] += fmt.Sprintf(":%d", *it.Line+1)
		}
	}
	return mcp.NewToolResultText(items.Day + "\n" + strings.Join(lines, "\n")), nil
}

func (s *Server) listDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := s.svc.Days(ctx, req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(days), nil
}

func (s *Server) createDayNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := req.RequireString("day")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	created, err := s.svc.CreateNote(ctx, day, req.GetString("content", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", created.Path)), nil
}

func (s *Server) indexStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status(ctx)), nil
}

func (s *Server) rebuildIndex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("rebuilt: %d documents, %d items on %d days",
		sum.Documents, sum.Items, sum.Days)), nil
}

func (s *Server) setDateSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.SetMode(ctx, mode)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("date source: %s, %d items on %d days",
		sum.Mode, sum.Items, sum.Days)), nil
}

func (s *Server) readDateSourcesResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DateSourcesURI,
			MIMEType: "text/markdown",
			Text:     s.dateSources(ctx),
		},
	}, nil
}
