// Package tools implements the MCP tool handlers. Each handler is a thin
// adapter: decode typed input, call the service, render JSON. Domain errors
// come back as IsError results with the coded payload; transport errors are
// never fabricated here.
package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/service"
)

// Tools bundles the handlers around one service instance.
type Tools struct {
	Service *service.Service
}

type EntityCreateInput struct {
	Type string `json:"type" jsonschema:"Entity type: decision, task, note, prompt, component or link"`
	service.EntityInput
}

type EntityRefInput struct {
	ID string `json:"id" jsonschema:"Entity reference: full id, unique prefix (min 4 chars) or type:sequence"`
}

type EntityUpdateInput struct {
	ID string `json:"id" jsonschema:"Entity reference: full id, unique prefix (min 4 chars) or type:sequence"`
	service.EntityPatch
}

type EntityListInput struct {
	Type   string `json:"type" jsonschema:"Entity type to list"`
	Status string `json:"status,omitempty" jsonschema:"Only entities with this status"`
	Tag    string `json:"tag,omitempty" jsonschema:"Only entities carrying this tag"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Results to skip"`
}

type EntityBatchInput struct {
	Operations []service.BatchOp `json:"operations" jsonschema:"Operations to apply in order; each succeeds or fails on its own"`
}

type SupersedeInput struct {
	OldID string `json:"old_id" jsonschema:"Decision being superseded"`
	NewID string `json:"new_id" jsonschema:"Decision that replaces it"`
}

func (t *Tools) EntityCreate(ctx context.Context, _ *mcp.CallToolRequest, in EntityCreateInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	e, err := t.Service.CreateEntity(ctx, in.Type, in.EntityInput)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) EntityGet(_ context.Context, _ *mcp.CallToolRequest, in EntityRefInput) (*mcp.CallToolResult, any, error) {
	e, err := t.Service.GetEntity(in.ID)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) EntityUpdate(ctx context.Context, _ *mcp.CallToolRequest, in EntityUpdateInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	e, err := t.Service.UpdateEntity(ctx, in.ID, in.EntityPatch)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(e)
}

func (t *Tools) EntityDelete(ctx context.Context, _ *mcp.CallToolRequest, in EntityRefInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	if err := t.Service.DeleteEntity(ctx, in.ID); err != nil {
		return toolErr(err), nil, nil
	}
	return toolText("deleted %s", in.ID)
}

func (t *Tools) EntityList(_ context.Context, _ *mcp.CallToolRequest, in EntityListInput) (*mcp.CallToolResult, any, error) {
	list, total, err := t.Service.ListEntities(in.Type, in.Status, in.Tag, in.Limit, in.Offset)
	if err != nil {
		return toolErr(err), nil, nil
	}
	if list == nil {
		list = []entity.Entity{}
	}
	return toolJSON(struct {
		Entities []entity.Entity `json:"entities"`
		Total    int             `json:"total"`
	}{list, total})
}

func (t *Tools) EntityBatch(ctx context.Context, _ *mcp.CallToolRequest, in EntityBatchInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	report, err := t.Service.Batch(ctx, in.Operations)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(report)
}

func (t *Tools) DecisionSupersede(ctx context.Context, _ *mcp.CallToolRequest, in SupersedeInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	if err := t.Service.SupersedeDecision(ctx, in.OldID, in.NewID); err != nil {
		return toolErr(err), nil, nil
	}
	return toolText("%s superseded by %s", in.OldID, in.NewID)
}
