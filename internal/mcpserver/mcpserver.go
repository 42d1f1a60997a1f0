// Package mcpserver exposes the mission knowledge base as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/astro-go/internal/knowledge"
	"github.com/comigor/astro-go/internal/logger"
)

const (
	defaultLimit = 3
	maxLimit     = 10
)

// Searcher is the part of the knowledge base the tools need.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Hit, error)
}

type hitResult struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
	Details    string  `json:"details"`
}

// New builds the MCP server with the search_missions tool registered.
func New(kb Searcher, version string) *server.MCPServer {
	s := server.NewMCPServer("astro", version, server.WithToolCapabilities(false))

	tool := mcp.NewTool("search_missions",
		mcp.WithDescription("Full-text search over ISSDC mission descriptions. Returns the best matching missions as JSON."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free text, e.g. a mission name or instrument")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (1-10, default 3)")),
	)
	s.AddTool(tool, searchHandler(kb))
	return s
}

func searchHandler(kb Searcher) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.TrimSpace(request.GetString("query", ""))
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := request.GetInt("limit", defaultLimit)
		limit = min(max(limit, 1), maxLimit)

		logger.L.Debug("search_missions invoked", "query", query, "limit", limit)
		hits, err := kb.Search(ctx, query, limit)
		if err != nil {
			logger.L.Error("search_missions failed", "error", err)
			return mcp.NewToolResultError("search failed: " + err.Error()), nil
		}

		out := make([]hitResult, 0, len(hits))
		for _, h := range hits {
			out = append(out, hitResult{Index: h.Index, Similarity: h.Similarity, Details: h.Details})
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
