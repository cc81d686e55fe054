package tools

import (
	"context"
	"encoding/base64"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SyncMergeInput struct {
	Document string `json:"document" jsonschema:"Peer document snapshot, base64-encoded binary"`
}

func (t *Tools) SnapshotGenerate(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	stats, err := t.Service.GenerateSnapshot()
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(stats)
}

func (t *Tools) CacheRebuild(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	if err := t.Service.RebuildCache(); err != nil {
		return toolErr(err), nil, nil
	}
	return toolText("cache rebuilt")
}

func (t *Tools) Stats(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	report, err := t.Service.Stats()
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(report)
}

func (t *Tools) SyncMerge(ctx context.Context, _ *mcp.CallToolRequest, in SyncMergeInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	raw, err := base64.StdEncoding.DecodeString(in.Document)
	if err != nil {
		return toolError("document is not valid base64: %v", err), nil, nil
	}
	if err := t.Service.MergeDocument(ctx, raw); err != nil {
		return toolErr(err), nil, nil
	}
	return toolText("merged %d bytes", len(raw))
}
