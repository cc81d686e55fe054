package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ReadyTasksInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
	Priority string `json:"priority,omitempty" jsonschema:"Only tasks of this priority: urgent, high, normal or low"`
}

type BlockedTasksInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
	ID    string `json:"id,omitempty" jsonschema:"Task reference; when set, only that task's blockers are returned"`
}

type TasksDueInput struct {
	Date  string `json:"date" jsonschema:"Cutoff date in YYYY-MM-DD form; tasks due on or before it are returned"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results (default 50, max 100)"`
}

type TaskRescheduleInput struct {
	ID      string `json:"id" jsonschema:"Task reference: full id, unique prefix or task:sequence"`
	DueDate string `json:"due_date" jsonschema:"New due date in YYYY-MM-DD form"`
}

func (t *Tools) ReadyTasks(_ context.Context, _ *mcp.CallToolRequest, in ReadyTasksInput) (*mcp.CallToolResult, any, error) {
	tasks, err := t.Service.ReadyTasks(in.Limit, in.Priority)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(tasks)
}

func (t *Tools) BlockedTasks(_ context.Context, _ *mcp.CallToolRequest, in BlockedTasksInput) (*mcp.CallToolResult, any, error) {
	if in.ID != "" {
		blockers, err := t.Service.TaskBlockers(in.ID)
		if err != nil {
			return toolErr(err), nil, nil
		}
		return toolJSON(blockers)
	}
	tasks, err := t.Service.BlockedTasks(in.Limit)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(tasks)
}

func (t *Tools) NextTask(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	task, err := t.Service.NextTask()
	if err != nil {
		return toolErr(err), nil, nil
	}
	if task == nil {
		return toolText("no ready tasks")
	}
	return toolJSON(task)
}

func (t *Tools) TasksDue(_ context.Context, _ *mcp.CallToolRequest, in TasksDueInput) (*mcp.CallToolResult, any, error) {
	tasks, err := t.Service.TasksDue(in.Date, in.Limit)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(tasks)
}

func (t *Tools) TaskComplete(ctx context.Context, _ *mcp.CallToolRequest, in EntityRefInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	task, err := t.Service.CompleteTask(ctx, in.ID)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(task)
}

func (t *Tools) TaskReschedule(ctx context.Context, _ *mcp.CallToolRequest, in TaskRescheduleInput) (*mcp.CallToolResult, any, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	task, err := t.Service.RescheduleTask(ctx, in.ID, in.DueDate)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(task)
}
