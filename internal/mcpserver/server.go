// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ekko's conversation search tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/norwick/ekko/internal/export"
	"github.com/norwick/ekko/internal/models"
	"github.com/norwick/ekko/internal/provider"
	"github.com/norwick/ekko/internal/search"
)

// Server wraps the MCP server with Ekko tools. Each tool call re-scans
// the configured export file; the server keeps no state between calls.
type Server struct {
	mcp          *server.MCPServer
	adapter      *provider.Adapter
	engine       *search.Engine
	source       string
	defaultLimit int
}

// New creates a new MCP server with all Ekko tools registered.
func New(adapter *provider.Adapter, engine *search.Engine, source string, defaultLimit int) *Server {
	s := &Server{
		adapter:      adapter,
		engine:       engine,
		source:       source,
		defaultLimit: defaultLimit,
	}

	s.mcp = server.NewMCPServer(
		"Ekko",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_conversations",
		mcp.WithDescription("Search the conversation export by keywords, ranked by relevance."),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Space-separated search terms")),
		mcp.WithString("match", mcp.Description("Keyword combination: 'any' (default) or 'all'")),
		mcp.WithString("title", mcp.Description("Case-insensitive title substring filter")),
		mcp.WithString("role", mcp.Description("Restrict matching to one role: user, assistant, or system")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchConversations)

	s.mcp.AddTool(mcp.NewTool("list_conversations",
		mcp.WithDescription("List conversations in the export with id, title, and message count."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of conversations to list")),
	), s.listConversations)

	s.mcp.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Fetch one conversation as a Markdown transcript. "+
			"Accepts a full id or a case-insensitive prefix of at least 4 characters."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id or id prefix")),
	), s.getConversation)

	s.mcp.AddTool(mcp.NewTool("get_message",
		mcp.WithDescription("Fetch one message and identify its conversation. "+
			"Accepts a full id or a case-insensitive prefix of at least 4 characters."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Message id or id prefix")),
		mcp.WithString("conversation_id", mcp.Description("Optional conversation id hint to narrow the scan")),
	), s.getMessage)

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

func (s *Server) searchConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := models.SearchQuery{
		Keywords:    strings.Fields(keywords),
		TitleFilter: req.GetString("title", ""),
		RoleFilter:  models.Role(req.GetString("role", "")),
		MatchMode:   models.MatchMode(req.GetString("match", "")),
		Limit:       req.GetInt("limit", s.defaultLimit),
	}

	if err := query.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cur, err := s.adapter.StreamConversations(s.source, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer cur.Close()

	results, err := s.engine.Search(cur, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}

	out, _ := json.MarshalIndent(summaries(results), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listConversations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", s.defaultLimit)

	cur, err := s.adapter.StreamConversations(s.source, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer cur.Close()

	var lines []string
	for len(lines) < limit && cur.Next() {
		c := cur.Conversation()
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d messages\t%s",
			c.ID, c.Title, c.MessageCount(), c.CreatedAt.Format(time.RFC3339)))
	}
	if err := cur.Err(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no conversations"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getConversation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conv, err := s.adapter.GetConversationByID(s.source, id, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if err := export.ConversationMarkdown(&sb, conv); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) getMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hint := req.GetString("conversation_id", "")

	msg, conv, err := s.adapter.GetMessageByID(s.source, id, hint, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(struct {
		ConversationID    string         `json:"conversation_id"`
		ConversationTitle string         `json:"conversation_title"`
		Message           models.Message `json:"message"`
	}{conv.ID, conv.Title, msg}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// summary is the compact per-result view returned by the search tool;
// full conversations would blow up tool output for large exports.
type summary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Messages int     `json:"messages"`
	Matched  int     `json:"matched_messages"`
	Snippet  string  `json:"snippet,omitempty"`
}

func summaries(results []models.SearchResult) []summary {
	out := make([]summary, 0, len(results))
	for _, r := range results {
		out = append(out, summary{
			ID:       r.Conversation.ID,
			Title:    r.Conversation.Title,
			Score:    r.Score,
			Messages: r.Conversation.MessageCount(),
			Matched:  len(r.MatchedMessageIDs),
			Snippet:  r.Snippet,
		})
	}
	return out
}
