package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/medullahq/medulla/internal/entity"
)

// fakeSource feeds the cache without a real CRDT document.
type fakeSource struct {
	entities  []entity.Entity
	relations []*entity.Relation
	version   string
}

func (f *fakeSource) ListAll() ([]entity.Entity, error)            { return f.entities, nil }
func (f *fakeSource) ListRelations() ([]*entity.Relation, error)   { return f.relations, nil }
func (f *fakeSource) VersionHash() string                          { return f.version }

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

var seq int

func mkTask(title, status, priority, due string) *entity.Task {
	seq++
	now := time.Now().UTC()
	return &entity.Task{
		Base: entity.Base{
			ID:             title + "-id-0000",
			Title:          title,
			SequenceNumber: seq,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		Status:   entity.TaskStatus(status),
		Priority: entity.TaskPriority(priority),
		DueDate:  due,
	}
}

func mkNote(id, title, content string, tags ...string) *entity.Note {
	seq++
	now := time.Now().UTC()
	return &entity.Note{Base: entity.Base{
		ID: id, Title: title, Content: content, Tags: tags,
		SequenceNumber: seq, CreatedAt: now, UpdatedAt: now,
	}}
}

func blocks(src, tgt entity.Entity) *entity.Relation {
	return &entity.Relation{
		SourceID:   src.Meta().ID,
		TargetID:   tgt.Meta().ID,
		Type:       entity.RelBlocks,
		SourceType: src.EntityType(),
		TargetType: tgt.EntityType(),
		CreatedAt:  time.Now().UTC(),
	}
}

func sync(t *testing.T, c *Cache, src *fakeSource) {
	t.Helper()
	if err := c.SyncFull(src); err != nil {
		t.Fatalf("SyncFull: %v", err)
	}
}

// ─── Sync state ───

func TestSync_RecordsVersion(t *testing.T) {
	c := newTestCache(t)
	src := &fakeSource{version: "v1"}
	stale, err := c.NeedsSync("v1")
	if err != nil {
		t.Fatalf("NeedsSync: %v", err)
	}
	if !stale {
		t.Error("fresh cache should need sync")
	}
	sync(t, c, src)
	stale, err = c.NeedsSync("v1")
	if err != nil {
		t.Fatalf("NeedsSync: %v", err)
	}
	if stale {
		t.Error("cache should be current after sync")
	}
	ran, err := c.SyncIfStale(src)
	if err != nil {
		t.Fatalf("SyncIfStale: %v", err)
	}
	if ran {
		t.Error("SyncIfStale should be a no-op on current cache")
	}
	src.version = "v2"
	ran, err = c.SyncIfStale(src)
	if err != nil {
		t.Fatalf("SyncIfStale: %v", err)
	}
	if !ran {
		t.Error("SyncIfStale should rebuild on version change")
	}
}

func TestOpen_Reentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	c1.Close()
	c2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	c2.Close()
}

// ─── Task queues ───

func TestReadyTasks_Ordering(t *testing.T) {
	c := newTestCache(t)
	low := mkTask("low", "todo", "low", "")
	urgent := mkTask("urgent", "todo", "urgent", "")
	dueSoon := mkTask("due-soon", "todo", "normal", "2026-01-01")
	dueLater := mkTask("due-later", "todo", "normal", "2026-06-01")
	noDue := mkTask("no-due", "todo", "normal", "")
	done := mkTask("done", "done", "urgent", "")
	sync(t, c, &fakeSource{
		entities: []entity.Entity{low, urgent, dueSoon, dueLater, noDue, done},
		version:  "v",
	})
	got, err := c.ReadyTasks(0, "")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	want := []string{"urgent", "due-soon", "due-later", "no-due", "low"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("ready[%d] = %q, want %q", i, got[i].Title, title)
		}
	}
}

func TestReadyTasks_ExcludesBlocked(t *testing.T) {
	c := newTestCache(t)
	blocker := mkTask("blocker", "todo", "normal", "")
	blocked := mkTask("blocked", "todo", "urgent", "")
	sync(t, c, &fakeSource{
		entities:  []entity.Entity{blocker, blocked},
		relations: []*entity.Relation{blocks(blocker, blocked)},
		version:   "v",
	})
	ready, err := c.ReadyTasks(0, "")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	if len(ready) != 1 || ready[0].Title != "blocker" {
		t.Errorf("ready = %+v, want only blocker", ready)
	}
	blockedList, err := c.BlockedTasks(0)
	if err != nil {
		t.Fatalf("BlockedTasks: %v", err)
	}
	if len(blockedList) != 1 || blockedList[0].Title != "blocked" {
		t.Errorf("blocked = %+v", blockedList)
	}
	blockers, err := c.TaskBlockers(blocked.ID)
	if err != nil {
		t.Fatalf("TaskBlockers: %v", err)
	}
	if len(blockers) != 1 || blockers[0].Title != "blocker" {
		t.Errorf("blockers = %+v", blockers)
	}
}

func TestReadyTasks_DoneBlockerReleases(t *testing.T) {
	c := newTestCache(t)
	blocker := mkTask("finished-blocker", "done", "normal", "")
	blocked := mkTask("released", "todo", "normal", "")
	sync(t, c, &fakeSource{
		entities:  []entity.Entity{blocker, blocked},
		relations: []*entity.Relation{blocks(blocker, blocked)},
		version:   "v",
	})
	ready, err := c.ReadyTasks(0, "")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	if len(ready) != 1 || ready[0].Title != "released" {
		t.Errorf("ready = %+v, want released task", ready)
	}
}

func TestReadyTasks_PriorityFilter(t *testing.T) {
	c := newTestCache(t)
	urgent := mkTask("drop everything", "todo", "urgent", "")
	normal := mkTask("whenever", "todo", "normal", "")
	sync(t, c, &fakeSource{
		entities: []entity.Entity{urgent, normal},
		version:  "v",
	})
	got, err := c.ReadyTasks(0, "urgent")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	if len(got) != 1 || got[0].Title != "drop everything" {
		t.Errorf("ready = %+v, want only the urgent task", got)
	}
}

func TestNextTask_Empty(t *testing.T) {
	c := newTestCache(t)
	sync(t, c, &fakeSource{version: "v"})
	next, err := c.NextTask()
	if err != nil {
		t.Fatalf("NextTask: %v", err)
	}
	if next != nil {
		t.Errorf("NextTask = %+v, want nil", next)
	}
}

func TestTasksDue(t *testing.T) {
	c := newTestCache(t)
	overdue := mkTask("overdue", "todo", "normal", "2026-01-01")
	future := mkTask("future", "todo", "normal", "2030-01-01")
	sync(t, c, &fakeSource{entities: []entity.Entity{overdue, future}, version: "v"})
	got, err := c.TasksDue("2026-12-31", 0)
	if err != nil {
		t.Fatalf("TasksDue: %v", err)
	}
	if len(got) != 1 || got[0].Title != "overdue" {
		t.Errorf("TasksDue = %+v", got)
	}
}

// ─── Search ───

func TestSearch_MatchAndFilter(t *testing.T) {
	c := newTestCache(t)
	n1 := mkNote("n1-0000", "Deploy pipeline", "uses blue-green deploys", "infra")
	n2 := mkNote("n2-0000", "Meeting notes", "discussed the deploy schedule", "meeting")
	task := mkTask("deploy-task", "todo", "normal", "")
	sync(t, c, &fakeSource{entities: []entity.Entity{n1, n2, task}, version: "v"})

	all, err := c.Search("deploy", SearchFilter{}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) < 2 {
		t.Fatalf("Search hits = %d, want >= 2", len(all))
	}
	notesOnly, err := c.Search("deploy", SearchFilter{Types: []string{"note"}}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range notesOnly {
		if r.Type != "note" {
			t.Errorf("type filter leaked %q", r.Type)
		}
	}
	tagged, err := c.Search("deploy", SearchFilter{Tags: []string{"infra"}}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != "n1-0000" {
		t.Errorf("tag filter = %+v", tagged)
	}
}

func TestSearch_EmptyQueryWithFilter(t *testing.T) {
	c := newTestCache(t)
	sync(t, c, &fakeSource{
		entities: []entity.Entity{mkTask("only-task", "todo", "normal", "")},
		version:  "v",
	})
	got, err := c.Search("", SearchFilter{Types: []string{"task"}}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "only-task" {
		t.Errorf("Search = %+v", got)
	}
}

func TestSanitizeFTS(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello world", `"hello" "world"`},
		{`drop "table"`, `"drop" "table"`},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := sanitizeFTS(tc.in); got != tc.want {
			t.Errorf("sanitizeFTS(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// ─── Graph ───

func TestRelations_Directions(t *testing.T) {
	c := newTestCache(t)
	a := mkNote("aaaa-0000", "a", "")
	b := mkNote("bbbb-0000", "b", "")
	orphan := mkNote("cccc-0000", "loner", "")
	rel := &entity.Relation{
		SourceID: a.ID, TargetID: b.ID, Type: entity.RelReferences,
		SourceType: entity.TypeNote, TargetType: entity.TypeNote,
		CreatedAt: time.Now().UTC(),
	}
	sync(t, c, &fakeSource{
		entities:  []entity.Entity{a, b, orphan},
		relations: []*entity.Relation{rel},
		version:   "v",
	})
	out, err := c.Relations(a.ID, DirOut, nil)
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if len(out) != 1 || out[0].TargetID != b.ID {
		t.Errorf("out edges = %+v", out)
	}
	in, err := c.Relations(a.ID, DirIn, nil)
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if len(in) != 0 {
		t.Errorf("in edges = %+v, want none", in)
	}
	typed, err := c.Relations(a.ID, DirBoth, []string{"blocks"})
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if len(typed) != 0 {
		t.Errorf("type-filtered edges = %+v, want none", typed)
	}
	orphans, err := c.Orphans(0, "")
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphan.ID {
		t.Errorf("orphans = %+v", orphans)
	}
}

func TestGraph_DanglingEdgesFiltered(t *testing.T) {
	c := newTestCache(t)
	a := mkNote("aaaa-0000", "survivor", "")
	// The edge's target was deleted from the document; the relation row
	// stays but must not surface in any query.
	dangling := &entity.Relation{
		SourceID: a.ID, TargetID: "gone-0000", Type: entity.RelReferences,
		SourceType: entity.TypeNote, TargetType: entity.TypeNote,
		CreatedAt: time.Now().UTC(),
	}
	sync(t, c, &fakeSource{
		entities:  []entity.Entity{a},
		relations: []*entity.Relation{dangling},
		version:   "v",
	})
	edges, err := c.Relations(a.ID, DirBoth, nil)
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("edges = %+v, want dangling edge hidden", edges)
	}
	all, err := c.AllEdges()
	if err != nil {
		t.Fatalf("AllEdges: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("all edges = %+v, want none", all)
	}
	// A dangling edge does not rescue an entity from orphan status.
	orphans, err := c.Orphans(0, "")
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != a.ID {
		t.Errorf("orphans = %+v, want the survivor", orphans)
	}
}

func TestOrphans_TypeFilter(t *testing.T) {
	c := newTestCache(t)
	note := mkNote("nnnn-0000", "stray note", "")
	task := mkTask("stray task", "todo", "normal", "")
	sync(t, c, &fakeSource{entities: []entity.Entity{note, task}, version: "v"})
	got, err := c.Orphans(0, "task")
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(got) != 1 || got[0].Title != "stray task" {
		t.Errorf("orphans = %+v, want only the task", got)
	}
}

// ─── Embeddings ───

func TestEmbeddings_Lifecycle(t *testing.T) {
	c := newTestCache(t)
	note := mkNote("em-1-0000", "vector note", "semantic content")
	sync(t, c, &fakeSource{entities: []entity.Entity{note}, version: "v1"})

	text := EmbeddableText(note)
	row := &EmbeddingRow{
		EntityID:   note.ID,
		EntityType: "note",
		Vector:     []float32{0.1, 0.2, 0.3},
		TextHash:   TextHash(text),
		Model:      "nomic-embed-text",
	}
	if err := c.PutEmbedding(row); err != nil {
		t.Fatalf("PutEmbedding: %v", err)
	}
	hash, err := c.EmbeddingHash(note.ID)
	if err != nil {
		t.Fatalf("EmbeddingHash: %v", err)
	}
	if hash != row.TextHash {
		t.Errorf("hash = %q, want %q", hash, row.TextHash)
	}
	list, err := c.ListEmbeddings("note")
	if err != nil {
		t.Fatalf("ListEmbeddings: %v", err)
	}
	if len(list) != 1 || len(list[0].Vector) != 3 {
		t.Fatalf("ListEmbeddings = %+v", list)
	}
	if list[0].Vector[1] != 0.2 {
		t.Errorf("vector roundtrip = %v", list[0].Vector)
	}

	// Resync without the entity prunes its vector.
	sync(t, c, &fakeSource{version: "v2"})
	hash, err = c.EmbeddingHash(note.ID)
	if err != nil {
		t.Fatalf("EmbeddingHash: %v", err)
	}
	if hash != "" {
		t.Error("embedding should be pruned with its entity")
	}
}

// ─── Stats ───

func TestStats(t *testing.T) {
	c := newTestCache(t)
	a := mkNote("st-1-0000", "one", "")
	b := mkTask("st-task", "todo", "normal", "")
	sync(t, c, &fakeSource{
		entities:  []entity.Entity{a, b},
		relations: []*entity.Relation{},
		version:   "stats-v",
	})
	st, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Entities["note"] != 1 || st.Entities["task"] != 1 {
		t.Errorf("entity counts = %v", st.Entities)
	}
	if st.Version != "stats-v" {
		t.Errorf("Version = %q", st.Version)
	}
	if st.DBSize == 0 {
		t.Error("DBSize should be nonzero")
	}
}
