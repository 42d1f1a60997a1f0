package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/astro-go/internal/knowledge"
)

type fakeSearcher struct {
	hits  []knowledge.Hit
	err   error
	query string
	k     int
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]knowledge.Hit, error) {
	f.query, f.k = query, k
	return f.hits, f.err
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "search_missions", Arguments: args}}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return tc.Text
}

func TestSearchHandler(t *testing.T) {
	kb := &fakeSearcher{hits: []knowledge.Hit{{Index: 2, Similarity: 0.8, Details: "AstroSat is a space telescope."}}}

	res, err := searchHandler(kb)(context.Background(), call(map[string]any{"query": "astrosat", "limit": 5.0}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "astrosat", kb.query)
	require.Equal(t, 5, kb.k)

	var got []hitResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Equal(t, []hitResult{{Index: 2, Similarity: 0.8, Details: "AstroSat is a space telescope."}}, got)
}

func TestSearchHandler_LimitBounds(t *testing.T) {
	kb := &fakeSearcher{}

	_, err := searchHandler(kb)(context.Background(), call(map[string]any{"query": "mars"}))
	require.NoError(t, err)
	require.Equal(t, defaultLimit, kb.k)

	_, err = searchHandler(kb)(context.Background(), call(map[string]any{"query": "mars", "limit": 500.0}))
	require.NoError(t, err)
	require.Equal(t, maxLimit, kb.k)
}

func TestSearchHandler_Errors(t *testing.T) {
	res, err := searchHandler(&fakeSearcher{})(context.Background(), call(map[string]any{"query": "  "}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	res, err = searchHandler(&fakeSearcher{err: errors.New("index closed")})(context.Background(), call(map[string]any{"query": "mars"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "index closed")
}

func TestNew(t *testing.T) {
	require.NotNil(t, New(&fakeSearcher{}, "test"))
}
