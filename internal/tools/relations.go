package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type RelationInput struct {
	SourceID   string            `json:"source_id" jsonschema:"Source entity reference"`
	TargetID   string            `json:"target_id" jsonschema:"Target entity reference"`
	Type       string            `json:"type" jsonschema:"Relation type: blocks, depends_on, relates_to, supersedes, implements, references, documents, belongs_to"`
	Properties map[string]string `json:"properties,omitempty" jsonschema:"Optional key/value annotations on the edge"`
}

type GraphRelationsInput struct {
	ID        string   `json:"id" jsonschema:"Entity reference to inspect"`
	Direction string   `json:"direction,omitempty" jsonschema:"Edge direction: in, out or both (default both)"`
	Types     []string `json:"types,omitempty" jsonschema:"Restrict to these relation types"`
}

type GraphPathInput struct {
	FromID   string `json:"from_id" jsonschema:"Start entity reference"`
	ToID     string `json:"to_id" jsonschema:"End entity reference"`
	MaxDepth *int   `json:"max_depth,omitempty" jsonschema:"Maximum hops to explore (default 10); 0 matches only identical endpoints"`
}

type GraphOrphansInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
	Type  string `json:"type,omitempty" jsonschema:"Only orphans of this entity type"`
}

func (t *Tools) RelationAdd(ctx context.Context, _ *mcp.CallToolRequest, in RelationInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	rel, err := t.Service.AddRelation(ctx, in.SourceID, in.TargetID, in.Type, in.Properties)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(rel)
}

func (t *Tools) RelationDelete(ctx context.Context, _ *mcp.CallToolRequest, in RelationInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	if err := t.Service.DeleteRelation(ctx, in.SourceID, in.TargetID, in.Type); err != nil {
		return toolErr(err), nil, nil
	}
	return toolText("relation removed")
}

func (t *Tools) GraphRelations(_ context.Context, _ *mcp.CallToolRequest, in GraphRelationsInput) (*mcp.CallToolResult, any, error) {
	edges, err := t.Service.GraphRelations(in.ID, in.Direction, in.Types)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(edges)
}

func (t *Tools) GraphPath(_ context.Context, _ *mcp.CallToolRequest, in GraphPathInput) (*mcp.CallToolResult, any, error) {
	depth := -1
	if in.MaxDepth != nil {
		depth = *in.MaxDepth
	}
	path, err := t.Service.GraphPath(in.FromID, in.ToID, depth)
	if err != nil {
		return toolErr(err), nil, nil
	}
	if path == nil {
		return toolText("no path between %s and %s", in.FromID, in.ToID)
	}
	return toolJSON(path)
}

func (t *Tools) GraphOrphans(_ context.Context, _ *mcp.CallToolRequest, in GraphOrphansInput) (*mcp.CallToolResult, any, error) {
	orphans, err := t.Service.GraphOrphans(in.Limit, in.Type)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(orphans)
}
