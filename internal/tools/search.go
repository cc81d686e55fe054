package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchInput struct {
	Query string `json:"query" jsonschema:"Search text; supports type:/status:/tag:/created:> and created:< filter prefixes"`
	Mode  string `json:"mode,omitempty" jsonschema:"Search mode: fulltext, semantic or hybrid (default fulltext)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
}

func (t *Tools) Search(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	results, err := t.Service.Search(ctx, in.Query, in.Mode, in.Limit)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(results)
}
