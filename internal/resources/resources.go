// Package resources serves read-only project views over medulla:// URIs.
// Every payload is JSON; list resources accept limit/offset query
// parameters.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
	"github.com/medullahq/medulla/internal/service"
)

const (
	Scheme   = "medulla://"
	mimeType = "application/json"
)

// Static resource URIs.
const (
	URISchema       = "medulla://schema"
	URIStats        = "medulla://stats"
	URIEntities     = "medulla://entities"
	URIDecisions    = "medulla://decisions"
	URITasks        = "medulla://tasks"
	URITasksReady   = "medulla://tasks/ready"
	URITasksBlocked = "medulla://tasks/blocked"
	URIPrompts      = "medulla://prompts"
	URIGraph        = "medulla://graph"
)

// Template URI patterns.
const (
	TemplateEntitiesByType  = "medulla://entities/{type}"
	TemplateEntityByID      = "medulla://entity/{id}"
	TemplateDecisionsActive = "medulla://decisions/active"
	TemplateTasksActive     = "medulla://tasks/active"
	TemplateTasksDue        = "medulla://tasks/due/{date}"
)

// Handler resolves medulla:// URIs against one service instance.
type Handler struct {
	Service *service.Service
}

// Register attaches every static resource and template to srv. All of them
// dispatch through Handler.Read.
func Register(srv *mcp.Server, svc *service.Service) *Handler {
	h := &Handler{Service: svc}

	statics := []struct {
		uri, name, desc string
	}{
		{URISchema, "schema", "Entity type definitions, enums and limits"},
		{URIStats, "stats", "Entity counts, cache state and advisory warnings"},
		{URIEntities, "entities", "All entities across every type"},
		{URIDecisions, "decisions", "All decisions"},
		{URITasks, "tasks", "All tasks"},
		{URITasksReady, "ready-tasks", "Unblocked, not-done tasks in priority order"},
		{URITasksBlocked, "blocked-tasks", "Blocked tasks with their blockers"},
		{URIPrompts, "prompts", "All prompt templates"},
		{URIGraph, "graph", "Every entity and relation"},
	}
	for _, r := range statics {
		srv.AddResource(&mcp.Resource{
			URI:         r.uri,
			Name:        r.name,
			Description: r.desc,
			MIMEType:    mimeType,
		}, h.handle)
	}

	templates := []struct {
		pattern, name, desc string
	}{
		{TemplateEntitiesByType, "entities-by-type", "Entities of one type"},
		{TemplateEntityByID, "entity-by-id", "One entity by id, prefix or type:sequence"},
		{TemplateDecisionsActive, "active-decisions", "Decisions that are neither superseded nor deprecated"},
		{TemplateTasksActive, "active-tasks", "Tasks that are not done"},
		{TemplateTasksDue, "tasks-due", "Not-done tasks due on or before a date"},
	}
	for _, r := range templates {
		srv.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: r.pattern,
			Name:        r.name,
			Description: r.desc,
			MIMEType:    mimeType,
		}, h.handle)
	}
	return h
}

func (h *Handler) handle(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return h.Read(ctx, req.Params.URI)
}

// Read resolves one URI to its JSON payload.
func (h *Handler) Read(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return nil, merr.InvalidResourceURI(uri)
	}
	path := strings.TrimPrefix(uri, Scheme)
	path, limit, offset, err := splitQuery(path)
	if err != nil {
		return nil, merr.InvalidResourceURI(uri)
	}

	switch path {
	case "schema":
		raw, err := h.Service.SchemaJSON()
		if err != nil {
			return nil, err
		}
		return rawContents(uri, raw), nil
	case "stats":
		report, err := h.Service.Stats()
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, report)
	case "entities":
		return h.allEntities(uri, limit, offset)
	case "decisions":
		return h.entityList(uri, entity.TypeDecision, limit, offset, nil)
	case "decisions/active":
		return h.entityList(uri, entity.TypeDecision, limit, offset, func(e entity.Entity) bool {
			s := e.(*entity.Decision).Status
			return s != entity.DecisionSuperseded && s != entity.DecisionDeprecated
		})
	case "tasks":
		return h.entityList(uri, entity.TypeTask, limit, offset, nil)
	case "tasks/active":
		return h.entityList(uri, entity.TypeTask, limit, offset, func(e entity.Entity) bool {
			return e.(*entity.Task).Status != entity.TaskDone
		})
	case "tasks/ready":
		tasks, err := h.Service.ReadyTasks(limit, "")
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, listPayload(tasks, len(tasks)))
	case "tasks/blocked":
		tasks, err := h.Service.BlockedTasks(limit)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, listPayload(tasks, len(tasks)))
	case "prompts":
		return h.entityList(uri, entity.TypePrompt, limit, offset, nil)
	case "graph":
		return h.graph(uri)
	}

	if name, ok := strings.CutPrefix(path, "entities/"); ok {
		t, err := entity.ParseType(name)
		if err != nil {
			return nil, merr.InvalidResourceURI(uri)
		}
		return h.entityList(uri, t, limit, offset, nil)
	}
	if ref, ok := strings.CutPrefix(path, "entity/"); ok {
		e, err := h.Service.GetEntity(ref)
		if err != nil {
			if merr.CodeOf(err) == merr.CodeEntityNotFound {
				return nil, merr.ResourceNotFound(uri)
			}
			return nil, err
		}
		return jsonContents(uri, e)
	}
	if date, ok := strings.CutPrefix(path, "tasks/due/"); ok {
		tasks, err := h.Service.TasksDue(date, limit)
		if err != nil {
			if merr.CodeOf(err) == merr.CodeValidationFailed {
				return nil, merr.InvalidResourceURI(uri)
			}
			return nil, err
		}
		return jsonContents(uri, listPayload(tasks, len(tasks)))
	}

	return nil, merr.ResourceNotFound(uri)
}

func (h *Handler) allEntities(uri string, limit, offset int) (*mcp.ReadResourceResult, error) {
	all, err := h.collectAll()
	if err != nil {
		return nil, err
	}
	total := len(all)
	return jsonContents(uri, listPayload(page(all, limit, offset), total))
}

// collectAll gathers every entity with an explicit type discriminator, since
// mixed-type lists are unreadable without one.
func (h *Handler) collectAll() ([]map[string]any, error) {
	var all []map[string]any
	for _, t := range entity.Types {
		list, err := h.Service.AllEntities(string(t))
		if err != nil {
			return nil, err
		}
		for _, e := range list {
			m, err := taggedEntity(e)
			if err != nil {
				return nil, err
			}
			all = append(all, m)
		}
	}
	return all, nil
}

func taggedEntity(e entity.Entity) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, merr.Internal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, merr.Internal(err)
	}
	m["type"] = string(e.EntityType())
	return m, nil
}

func (h *Handler) entityList(uri string, t entity.Type, limit, offset int, keep func(entity.Entity) bool) (*mcp.ReadResourceResult, error) {
	list, err := h.Service.AllEntities(string(t))
	if err != nil {
		return nil, err
	}
	if keep != nil {
		filtered := list[:0:0]
		for _, e := range list {
			if keep(e) {
				filtered = append(filtered, e)
			}
		}
		list = filtered
	}
	total := len(list)
	return jsonContents(uri, listPayload(page(list, limit, offset), total))
}

func (h *Handler) graph(uri string) (*mcp.ReadResourceResult, error) {
	all, err := h.collectAll()
	if err != nil {
		return nil, err
	}
	rels, err := h.Service.Store().ListRelations()
	if err != nil {
		return nil, err
	}
	// Relations whose endpoints are gone stay in the document; keep the
	// served graph closed over its entity set.
	ids := make(map[string]struct{}, len(all))
	for _, e := range all {
		if id, ok := e["id"].(string); ok {
			ids[id] = struct{}{}
		}
	}
	live := make([]*entity.Relation, 0, len(rels))
	for _, r := range rels {
		if _, ok := ids[r.SourceID]; !ok {
			continue
		}
		if _, ok := ids[r.TargetID]; !ok {
			continue
		}
		live = append(live, r)
	}
	if all == nil {
		all = []map[string]any{}
	}
	return jsonContents(uri, map[string]any{
		"entities":  all,
		"relations": live,
	})
}

func listPayload[T any](items []T, total int) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{"entities": items, "total": total}
}

func page[T any](list []T, limit, offset int) []T {
	limit = cache.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

// splitQuery strips an optional ?limit=&offset= suffix from the path.
func splitQuery(path string) (string, int, int, error) {
	base, query, ok := strings.Cut(path, "?")
	if !ok {
		return path, 0, 0, nil
	}
	vals, err := url.ParseQuery(query)
	if err != nil {
		return "", 0, 0, err
	}
	limit, err := queryInt(vals, "limit")
	if err != nil {
		return "", 0, 0, err
	}
	offset, err := queryInt(vals, "offset")
	if err != nil {
		return "", 0, 0, err
	}
	return base, limit, offset, nil
}

func queryInt(vals url.Values, key string) (int, error) {
	raw := vals.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, merr.Internal(err)
	}
	return rawContents(uri, raw), nil
}

func rawContents(uri string, raw []byte) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     string(raw),
		}},
	}
}
