package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medullahq/medulla/internal/entity"
)

type memSource struct {
	entities  []entity.Entity
	relations []*entity.Relation
}

func (m *memSource) ListAll() ([]entity.Entity, error)          { return m.entities, nil }
func (m *memSource) ListRelations() ([]*entity.Relation, error) { return m.relations, nil }

var fixedTime = time.Date(2026, 8, 20, 12, 30, 45, 0, time.UTC)

func base(id, title string, seq int) entity.Base {
	return entity.Base{
		ID: id, Title: title, SequenceNumber: seq,
		CreatedAt: fixedTime, UpdatedAt: fixedTime,
	}
}

func readSnapshotFile(t *testing.T, dir string, parts ...string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(append([]string{dir}, parts...)...))
	if err != nil {
		t.Fatalf("reading snapshot file: %v", err)
	}
	return string(raw)
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Use automerge for storage", "use-automerge-for-storage"},
		{"  --Weird___Title!!  ", "weird-title"},
		{"日本語のみ", "untitled"},
		{"", "untitled"},
		{"CamelCase123", "camelcase123"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugger_Collisions(t *testing.T) {
	s := newSlugger()
	if got := s.slug("Same Title"); got != "same-title" {
		t.Errorf("first slug = %q", got)
	}
	if got := s.slug("Same Title"); got != "same-title-2" {
		t.Errorf("second slug = %q", got)
	}
	if got := s.slug("Same Title"); got != "same-title-3" {
		t.Errorf("third slug = %q", got)
	}
}

func TestGenerate_DecisionFile(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{entities: []entity.Entity{
		&entity.Decision{
			Base:         base("d1-uuid-xxxx", "Adopt CRDT storage", 1),
			Status:       entity.DecisionAccepted,
			Context:      "Need offline merges.",
			Consequences: []string{"binary file in git"},
		},
	}}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	content := readSnapshotFile(t, dir, "decisions", "001-adopt-crdt-storage.md")
	for _, want := range []string{
		"---\n",
		"id: d1-uuid-xxxx",
		"sequence: 1",
		"status: accepted",
		"2026-08-20",
		"# Adopt CRDT storage",
		"## Context",
		"## Consequences",
		"- binary file in git",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("decision file missing %q\n---\n%s", want, content)
		}
	}
}

func TestGenerate_ActiveTasks(t *testing.T) {
	dir := t.TempDir()
	blocker := &entity.Task{Base: base("blocker-uuid", "Ship schema", 1),
		Status: entity.TaskTodo, Priority: entity.PriorityNormal}
	blocked := &entity.Task{Base: base("blocked-uuid", "Ship server", 2),
		Status: entity.TaskInProgress, Priority: entity.PriorityUrgent,
		DueDate: "2026-09-01", Assignee: "sam"}
	done := &entity.Task{Base: base("done-uuid", "Write pitch", 3),
		Status: entity.TaskDone, Priority: entity.PriorityNormal}
	src := &memSource{
		entities: []entity.Entity{blocker, blocked, done},
		relations: []*entity.Relation{{
			SourceID: blocker.ID, TargetID: blocked.ID, Type: entity.RelBlocks,
			SourceType: entity.TypeTask, TargetType: entity.TypeTask, CreatedAt: fixedTime,
		}},
	}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	active := readSnapshotFile(t, dir, "tasks", "active.md")
	for _, want := range []string{
		"## Urgent",
		"## Normal Priority",
		"- [ ] **Ship server** `#2` `(blocked)` _(in progress)_ ⛔ blocked by #1",
		"  - due: 2026-09-01 | assignee: sam",
		"- [ ] **Ship schema** `#1` `(blocker)`",
	} {
		if !strings.Contains(active, want) {
			t.Errorf("active.md missing %q\n---\n%s", want, active)
		}
	}
	completed := readSnapshotFile(t, dir, "tasks", "completed.md")
	if !strings.Contains(completed, "- [x] **Write pitch** `#3` - Completed 2026-08-20") {
		t.Errorf("completed.md = %s", completed)
	}
}

func TestGenerate_ComponentRelatedSection(t *testing.T) {
	dir := t.TempDir()
	comp := &entity.Component{Base: base("c1-uuid-xxxx", "API server", 1),
		Status: entity.ComponentActive}
	dec := &entity.Decision{Base: base("d1-uuid-xxxx", "Use gRPC", 1),
		Status: entity.DecisionAccepted}
	task := &entity.Task{Base: base("t1-uuid-xxxx", "Add retries", 1),
		Status: entity.TaskTodo, Priority: entity.PriorityNormal}
	src := &memSource{
		entities: []entity.Entity{comp, dec, task},
		relations: []*entity.Relation{
			{SourceID: dec.ID, TargetID: comp.ID, Type: entity.RelDocuments,
				SourceType: entity.TypeDecision, TargetType: entity.TypeComponent, CreatedAt: fixedTime},
			{SourceID: task.ID, TargetID: comp.ID, Type: entity.RelRelatesTo,
				SourceType: entity.TypeTask, TargetType: entity.TypeComponent, CreatedAt: fixedTime},
			// Dangling edge: its source was deleted and must not render.
			{SourceID: "gone-uuid-xxxx", TargetID: comp.ID, Type: entity.RelRelatesTo,
				SourceType: entity.TypeNote, TargetType: entity.TypeComponent, CreatedAt: fixedTime},
		},
	}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	page := readSnapshotFile(t, dir, "components", "api-server.md")
	for _, want := range []string{
		"## Related",
		"- decision #1: Use gRPC (documents)",
		"- task #1: Add retries (relates_to)",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("component page missing %q\n---\n%s", want, page)
		}
	}
	if strings.Contains(page, "gone-uuid") {
		t.Errorf("dangling edge rendered:\n%s", page)
	}
}

func TestGenerate_ComponentWithoutRelations(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{entities: []entity.Entity{
		&entity.Component{Base: base("c1-uuid-xxxx", "Worker", 1), Status: entity.ComponentActive},
	}}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	page := readSnapshotFile(t, dir, "components", "worker.md")
	if strings.Contains(page, "## Related") {
		t.Errorf("empty Related section rendered:\n%s", page)
	}
}

func TestGenerate_Readme(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{entities: []entity.Entity{
		&entity.Decision{Base: base("d1-uuid-xxxx", "Pick Go", 1), Status: entity.DecisionAccepted},
		&entity.Note{Base: base("n1-uuid-xxxx", "Kickoff", 1), NoteType: "meeting"},
		&entity.Link{Base: base("l1-uuid-xxxx", "Issue tracker", 1), URL: "https://example.com", LinkType: "issue"},
	}}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	readme := readSnapshotFile(t, dir, "README.md")
	for _, want := range []string{
		"# Project Knowledge Base",
		"| Decisions | 1 |",
		"| Tasks | 0 (0 active) |",
		"## Recent Activity",
		"## Quick Links",
		"- [001 - Pick Go](decisions/001-pick-go.md) `accepted`",
		"- [Kickoff](notes/kickoff.md) `meeting`",
		"- [Issue tracker](links/issue-tracker.md) `issue`",
		"*Generated: 2026-08-20 12:30:45 UTC*",
	} {
		if !strings.Contains(readme, want) {
			t.Errorf("README missing %q\n---\n%s", want, readme)
		}
	}
}

func TestGenerate_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	stats, err := Generate(&memSource{}, dir)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if stats.TotalEntities() != 0 || stats.Files != 1 {
		t.Errorf("stats = %+v", stats)
	}
	readme := readSnapshotFile(t, dir, "README.md")
	if !strings.Contains(readme, "*No entities yet.") {
		t.Errorf("empty README = %s", readme)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	src := &memSource{entities: []entity.Entity{
		&entity.Decision{Base: base("d1-uuid-xxxx", "Pick Go", 1), Status: entity.DecisionAccepted},
		&entity.Task{Base: base("t1-uuid-xxxx", "Build", 1), Status: entity.TaskTodo, Priority: entity.PriorityHigh},
	}}
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	if _, err := Generate(src, dir1); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Generate(src, dir2); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, rel := range []string{"README.md", filepath.Join("decisions", "001-pick-go.md"), filepath.Join("tasks", "active.md")} {
		a, err := os.ReadFile(filepath.Join(dir1, rel))
		if err != nil {
			t.Fatalf("reading %s: %v", rel, err)
		}
		b, err := os.ReadFile(filepath.Join(dir2, rel))
		if err != nil {
			t.Fatalf("reading %s: %v", rel, err)
		}
		if string(a) != string(b) {
			t.Errorf("%s differs between runs", rel)
		}
	}
}

func TestGenerate_RemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	src := &memSource{entities: []entity.Entity{
		&entity.Note{Base: base("n1-uuid-xxxx", "Keep me", 1)},
	}}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	stale := filepath.Join(dir, "notes", "deleted-note.md")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Generate(src, dir); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file survived regeneration")
	}
}
