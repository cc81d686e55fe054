package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medullahq/medulla/internal/config"
	"github.com/medullahq/medulla/internal/merr"
	"github.com/medullahq/medulla/internal/service"
	"github.com/medullahq/medulla/internal/store"
)

func newTestTools(t *testing.T) *Tools {
	t.Helper()
	root := t.TempDir()
	if _, err := store.Init(root); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	svc, err := service.Open(root)
	if err != nil {
		t.Fatalf("service.Open: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return &Tools{Service: svc}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func createTool(t *testing.T, tl *Tools, typ, title string) string {
	t.Helper()
	res, _, err := tl.EntityCreate(context.Background(), nil, EntityCreateInput{
		Type:        typ,
		EntityInput: service.EntityInput{Title: title},
	})
	if err != nil {
		t.Fatalf("EntityCreate: %v", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	decodeResult(t, res, &out)
	return out.ID
}

func TestEntityCreate_AndGet(t *testing.T) {
	tl := newTestTools(t)
	id := createTool(t, tl, "note", "Tool note")

	res, _, err := tl.EntityGet(context.Background(), nil, EntityRefInput{ID: id})
	if err != nil {
		t.Fatalf("EntityGet: %v", err)
	}
	var got struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	}
	decodeResult(t, res, &got)
	if got.Title != "Tool note" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestEntityGet_NotFound_CodedPayload(t *testing.T) {
	tl := newTestTools(t)
	res, _, err := tl.EntityGet(context.Background(), nil, EntityRefInput{ID: "note:9"})
	if err != nil {
		t.Fatalf("EntityGet: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
	var payload struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Code != merr.CodeEntityNotFound {
		t.Errorf("code = %d, want %d", payload.Code, merr.CodeEntityNotFound)
	}
}

func TestEntityUpdate_PatchesStatus(t *testing.T) {
	tl := newTestTools(t)
	id := createTool(t, tl, "task", "Tool task")

	status := "in_progress"
	res, _, err := tl.EntityUpdate(context.Background(), nil, EntityUpdateInput{
		ID:          id,
		EntityPatch: service.EntityPatch{Status: &status},
	})
	if err != nil {
		t.Fatalf("EntityUpdate: %v", err)
	}
	var got struct {
		Status string `json:"status"`
	}
	decodeResult(t, res, &got)
	if got.Status != "in_progress" {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestEntityDelete_ThenListEmpty(t *testing.T) {
	tl := newTestTools(t)
	id := createTool(t, tl, "note", "transient")

	res, _, err := tl.EntityDelete(context.Background(), nil, EntityRefInput{ID: id})
	if err != nil {
		t.Fatalf("EntityDelete: %v", err)
	}
	if res.IsError {
		t.Fatalf("delete failed: %s", resultText(t, res))
	}

	res, _, err = tl.EntityList(context.Background(), nil, EntityListInput{Type: "note"})
	if err != nil {
		t.Fatalf("EntityList: %v", err)
	}
	var page struct {
		Entities []json.RawMessage `json:"entities"`
		Total    int               `json:"total"`
	}
	decodeResult(t, res, &page)
	if len(page.Entities) != 0 || page.Total != 0 {
		t.Errorf("notes after delete = %d (total %d), want 0", len(page.Entities), page.Total)
	}
}

func TestEntityList_FiltersAndTotal(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()
	mk := func(title string, tags ...string) {
		t.Helper()
		res, _, err := tl.EntityCreate(ctx, nil, EntityCreateInput{
			Type:        "note",
			EntityInput: service.EntityInput{Title: title, Tags: tags},
		})
		if err != nil {
			t.Fatalf("EntityCreate: %v", err)
		}
		if res.IsError {
			t.Fatalf("create failed: %s", resultText(t, res))
		}
	}
	mk("tagged one", "keep")
	mk("tagged two", "keep")
	mk("untagged")

	res, _, err := tl.EntityList(ctx, nil, EntityListInput{Type: "note", Tag: "keep", Limit: 1})
	if err != nil {
		t.Fatalf("EntityList: %v", err)
	}
	var page struct {
		Entities []struct {
			Title string `json:"title"`
		} `json:"entities"`
		Total int `json:"total"`
	}
	decodeResult(t, res, &page)
	if len(page.Entities) != 1 || page.Total != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestEntityBatch_PartialFailureReported(t *testing.T) {
	tl := newTestTools(t)
	res, _, err := tl.EntityBatch(context.Background(), nil, EntityBatchInput{
		Operations: []service.BatchOp{
			{Op: "create", Type: "note", Input: &service.EntityInput{Title: "a"}},
			{Op: "delete", Ref: "note:7"},
		},
	})
	if err != nil {
		t.Fatalf("EntityBatch: %v", err)
	}
	var report struct {
		Results []struct {
			Index   int  `json:"index"`
			Success bool `json:"success"`
			Error   *struct {
				Code int `json:"code"`
			} `json:"error"`
		} `json:"results"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	decodeResult(t, res, &report)
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	bad := report.Results[1]
	if bad.Success || bad.Error == nil || bad.Error.Code != merr.CodeEntityNotFound {
		t.Errorf("failing result = %+v", bad)
	}
}

func TestTaskQueueTools(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()
	blocker := createTool(t, tl, "task", "first")
	blocked := createTool(t, tl, "task", "second")

	res, _, err := tl.RelationAdd(ctx, nil, RelationInput{
		SourceID: blocker, TargetID: blocked, Type: "blocks",
	})
	if err != nil {
		t.Fatalf("RelationAdd: %v", err)
	}
	if res.IsError {
		t.Fatalf("RelationAdd failed: %s", resultText(t, res))
	}

	res, _, err = tl.ReadyTasks(ctx, nil, ReadyTasksInput{})
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	var ready []struct {
		ID string `json:"id"`
	}
	decodeResult(t, res, &ready)
	if len(ready) != 1 || ready[0].ID != blocker {
		t.Fatalf("ready = %+v", ready)
	}

	res, _, err = tl.TaskComplete(ctx, nil, EntityRefInput{ID: blocker})
	if err != nil {
		t.Fatalf("TaskComplete: %v", err)
	}
	var done struct {
		Status string `json:"status"`
	}
	decodeResult(t, res, &done)
	if done.Status != "done" {
		t.Errorf("Status = %q", done.Status)
	}

	res, _, err = tl.NextTask(ctx, nil, struct{}{})
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	var next struct {
		ID string `json:"id"`
	}
	decodeResult(t, res, &next)
	if next.ID != blocked {
		t.Errorf("next = %q, want released task", next.ID)
	}
}

func TestTaskReschedule(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()
	id := createTool(t, tl, "task", "movable")

	res, _, err := tl.TaskReschedule(ctx, nil, TaskRescheduleInput{ID: id, DueDate: "2026-11-15"})
	if err != nil {
		t.Fatalf("TaskReschedule: %v", err)
	}
	var got struct {
		DueDate string `json:"due_date"`
	}
	decodeResult(t, res, &got)
	if got.DueDate != "2026-11-15" {
		t.Errorf("DueDate = %q", got.DueDate)
	}

	res, _, err = tl.TaskReschedule(ctx, nil, TaskRescheduleInput{ID: id, DueDate: "soon"})
	if err != nil {
		t.Fatalf("TaskReschedule: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result for a malformed date")
	}
}

func TestBlockedTasks_ByID(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()
	blocker := createTool(t, tl, "task", "first")
	blocked := createTool(t, tl, "task", "second")
	res, _, err := tl.RelationAdd(ctx, nil, RelationInput{
		SourceID: blocker, TargetID: blocked, Type: "blocks",
	})
	if err != nil {
		t.Fatalf("RelationAdd: %v", err)
	}
	if res.IsError {
		t.Fatalf("RelationAdd failed: %s", resultText(t, res))
	}

	res, _, err = tl.BlockedTasks(ctx, nil, BlockedTasksInput{ID: blocked})
	if err != nil {
		t.Fatalf("BlockedTasks: %v", err)
	}
	var blockers []struct {
		ID string `json:"id"`
	}
	decodeResult(t, res, &blockers)
	if len(blockers) != 1 || blockers[0].ID != blocker {
		t.Errorf("blockers = %+v", blockers)
	}
}

func TestRequestTimeout_BoundsHandlers(t *testing.T) {
	t.Setenv(config.EnvRequestTimeoutMS, "1234")
	tl := newTestTools(t)
	ctx, cancel := tl.withTimeout(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if d := time.Until(deadline); d <= 0 || d > 1234*time.Millisecond {
		t.Errorf("deadline in %v, want within 1234ms", d)
	}
}

func TestGraphPath_NoPathIsPlainText(t *testing.T) {
	tl := newTestTools(t)
	a := createTool(t, tl, "note", "island a")
	b := createTool(t, tl, "note", "island b")

	res, _, err := tl.GraphPath(context.Background(), nil, GraphPathInput{FromID: a, ToID: b})
	if err != nil {
		t.Fatalf("GraphPath: %v", err)
	}
	if res.IsError {
		t.Fatalf("GraphPath failed: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "no path") {
		t.Errorf("text = %q", resultText(t, res))
	}
}

func TestSearchTool(t *testing.T) {
	tl := newTestTools(t)
	createTool(t, tl, "note", "Deployment checklist")

	res, _, err := tl.Search(context.Background(), nil, SearchInput{Query: "deployment"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var hits []struct {
		Title string `json:"title"`
	}
	decodeResult(t, res, &hits)
	if len(hits) != 1 || hits[0].Title != "Deployment checklist" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSyncMerge_RejectsBadBase64(t *testing.T) {
	tl := newTestTools(t)
	res, _, err := tl.SyncMerge(context.Background(), nil, SyncMergeInput{Document: "not-base64!!"})
	if err != nil {
		t.Fatalf("SyncMerge: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
}

func TestSyncMerge_MergesPeerDocument(t *testing.T) {
	tl := newTestTools(t)
	peer := newTestTools(t)
	createTool(t, peer, "task", "peer task")

	raw := peer.Service.Store().Bytes()
	res, _, err := tl.SyncMerge(context.Background(), nil, SyncMergeInput{
		Document: base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		t.Fatalf("SyncMerge: %v", err)
	}
	if res.IsError {
		t.Fatalf("merge failed: %s", resultText(t, res))
	}

	list, _, err := tl.EntityList(context.Background(), nil, EntityListInput{Type: "task"})
	if err != nil {
		t.Fatalf("EntityList: %v", err)
	}
	var page struct {
		Entities []struct {
			Title string `json:"title"`
		} `json:"entities"`
	}
	decodeResult(t, list, &page)
	if len(page.Entities) != 1 || page.Entities[0].Title != "peer task" {
		t.Errorf("tasks after merge = %+v", page.Entities)
	}
}

func TestStatsTool(t *testing.T) {
	tl := newTestTools(t)
	createTool(t, tl, "decision", "counted decision")

	res, _, err := tl.Stats(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	var report struct {
		Entities map[string]int `json:"entities"`
	}
	decodeResult(t, res, &report)
	if report.Entities["decision"] != 1 {
		t.Errorf("entities = %v", report.Entities)
	}
}
