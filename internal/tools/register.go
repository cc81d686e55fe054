package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medullahq/medulla/internal/service"
)

// Register attaches every tool to srv.
func Register(srv *mcp.Server, svc *service.Service) {
	t := &Tools{Service: svc}

	// Entity lifecycle
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_create",
		Description: "Create a decision, task, note, prompt, component or link",
	}, t.EntityCreate)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_get",
		Description: "Fetch one entity by id, unique id prefix or type:sequence reference",
	}, t.EntityGet)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_update",
		Description: "Patch fields of an existing entity; omitted fields are left unchanged",
	}, t.EntityUpdate)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_delete",
		Description: "Delete an entity; its relations become inert and drop out of graph reads",
	}, t.EntityDelete)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_list",
		Description: "List entities of one type in sequence order, with status/tag filters and limit/offset paging",
	}, t.EntityList)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "entity_batch",
		Description: "Apply up to 100 create/update/delete/relate/unrelate operations best-effort, with per-operation results",
	}, t.EntityBatch)

	// Relations and graph
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "relation_add",
		Description: "Add a typed relation between two entities",
	}, t.RelationAdd)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "relation_delete",
		Description: "Remove one relation by its endpoints and type",
	}, t.RelationDelete)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "graph_relations",
		Description: "List the edges around an entity, filtered by direction and relation type",
	}, t.GraphRelations)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "graph_path",
		Description: "Find a shortest relation path between two entities",
	}, t.GraphPath)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "graph_orphans",
		Description: "List entities that have no relations at all, optionally of one type",
	}, t.GraphOrphans)

	// Search
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search",
		Description: "Search entities by full text, embedding similarity, or both",
	}, t.Search)

	// Task queues
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "ready_tasks",
		Description: "List unblocked, not-done tasks in priority order, optionally of one priority",
	}, t.ReadyTasks)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "blocked_tasks",
		Description: "List blocked tasks with their blockers, or the blockers of one task",
	}, t.BlockedTasks)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "next_task",
		Description: "Return the single highest-priority ready task",
	}, t.NextTask)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "tasks_due",
		Description: "List not-done tasks due on or before a date",
	}, t.TasksDue)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "task_complete",
		Description: "Mark a task done",
	}, t.TaskComplete)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "task_reschedule",
		Description: "Set a new due date on a task",
	}, t.TaskReschedule)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "decision_supersede",
		Description: "Mark a decision superseded by another and link the two",
	}, t.DecisionSupersede)

	// Project administration
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "snapshot_generate",
		Description: "Regenerate the markdown snapshot under .medulla/snapshot",
	}, t.SnapshotGenerate)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "cache_rebuild",
		Description: "Rebuild the derived SQLite cache from the document",
	}, t.CacheRebuild)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "stats",
		Description: "Report entity counts, cache state, file sizes and advisory warnings",
	}, t.Stats)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sync_merge",
		Description: "Merge a peer's base64-encoded document into this project",
	}, t.SyncMerge)
}
