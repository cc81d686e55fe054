package query

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

type fixtureSource struct {
	entities  []entity.Entity
	relations []*entity.Relation
}

func (f *fixtureSource) ListAll() ([]entity.Entity, error)          { return f.entities, nil }
func (f *fixtureSource) ListRelations() ([]*entity.Relation, error) { return f.relations, nil }
func (f *fixtureSource) VersionHash() string                        { return "fixture" }

// fakeEmbedder maps known words onto axis-aligned vectors so similarity is
// predictable.
type fakeEmbedder struct{}

func (fakeEmbedder) Model() string { return "fake" }

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "deploy"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "design"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func note(id, title, content string, tags ...string) *entity.Note {
	now := time.Now().UTC()
	return &entity.Note{Base: entity.Base{
		ID: id, Title: title, Content: content, Tags: tags,
		SequenceNumber: 1, CreatedAt: now, UpdatedAt: now,
	}}
}

func newFixture(t *testing.T, src *fixtureSource) (*Engine, *cache.Cache) {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.SyncFull(src); err != nil {
		t.Fatalf("SyncFull: %v", err)
	}
	return New(c, fakeEmbedder{}), c
}

// ─── Filter parsing ───

func TestParseQuery_Filters(t *testing.T) {
	text, filter, err := ParseQuery("type:task status:todo tag:infra tag:api created:>2026-01-01 created:<2026-12-31 deploy pipeline")
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if text != "deploy pipeline" {
		t.Errorf("text = %q", text)
	}
	if len(filter.Types) != 1 || filter.Types[0] != "task" {
		t.Errorf("Types = %v", filter.Types)
	}
	if filter.Status != "todo" {
		t.Errorf("Status = %q", filter.Status)
	}
	if len(filter.Tags) != 2 {
		t.Errorf("Tags = %v", filter.Tags)
	}
	if filter.CreatedAfter != "2026-01-01" || filter.CreatedBefore != "2026-12-31" {
		t.Errorf("created bounds = %q / %q", filter.CreatedAfter, filter.CreatedBefore)
	}
}

func TestParseQuery_BadType(t *testing.T) {
	_, _, err := ParseQuery("type:widget something")
	if got := merr.CodeOf(err); got != merr.CodeEntityTypeInvalid {
		t.Errorf("error code = %d, want %d", got, merr.CodeEntityTypeInvalid)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeFulltext {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if m, err := ParseMode("Semantic"); err != nil || m != ModeSemantic {
		t.Errorf("ParseMode(Semantic) = %v, %v", m, err)
	}
	if _, err := ParseMode("psychic"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

// ─── Search ───

func TestSearch_Fulltext(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{entities: []entity.Entity{
		note("n1", "Deploy pipeline", "blue-green deploys", "infra"),
		note("n2", "Design doc", "storage design"),
	}})
	got, err := eng.Search(context.Background(), "deploy", ModeFulltext, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Fatalf("results = %+v", got)
	}
	if got[0].Source != "fulltext" {
		t.Errorf("Source = %q", got[0].Source)
	}
}

func TestSearch_Semantic(t *testing.T) {
	eng, c := newFixture(t, &fixtureSource{entities: []entity.Entity{
		note("n1", "Deploy pipeline", ""),
		note("n2", "Design doc", ""),
	}})
	put := func(id string, vec []float32) {
		t.Helper()
		err := c.PutEmbedding(&cache.EmbeddingRow{
			EntityID: id, EntityType: "note", Vector: vec,
			TextHash: "h-" + id, Model: "fake",
		})
		if err != nil {
			t.Fatalf("PutEmbedding: %v", err)
		}
	}
	put("n1", []float32{1, 0, 0}) // "deploy" axis
	put("n2", []float32{0, 1, 0}) // "design" axis

	got, err := eng.Search(context.Background(), "deploy", ModeSemantic, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Fatalf("results = %+v", got)
	}
	if got[0].Score < 0.99 {
		t.Errorf("Score = %v, want ~1", got[0].Score)
	}
}

func TestSearch_SemanticWithoutEmbedderFails(t *testing.T) {
	_, c := newFixture(t, &fixtureSource{entities: []entity.Entity{
		note("n1", "Deploy pipeline", ""),
	}})
	eng := New(c, nil)
	_, err := eng.Search(context.Background(), "deploy", ModeSemantic, 0)
	if got := merr.CodeOf(err); got != merr.CodeValidationFailed {
		t.Errorf("error code = %d, want %d", got, merr.CodeValidationFailed)
	}
}

func TestSearch_HybridWithoutEmbedderFallsBack(t *testing.T) {
	_, c := newFixture(t, &fixtureSource{entities: []entity.Entity{
		note("n1", "Deploy pipeline", ""),
	}})
	eng := New(c, nil)
	got, err := eng.Search(context.Background(), "deploy", ModeHybrid, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Source != "fulltext" {
		t.Errorf("results = %+v, want fulltext fallback", got)
	}
}

func TestSearch_HybridPrefersSemanticScore(t *testing.T) {
	eng, c := newFixture(t, &fixtureSource{entities: []entity.Entity{
		note("n1", "Deploy pipeline", ""),
		note("n2", "deploy checklist", ""),
	}})
	if err := c.PutEmbedding(&cache.EmbeddingRow{
		EntityID: "n1", EntityType: "note", Vector: []float32{1, 0, 0},
		TextHash: "h", Model: "fake",
	}); err != nil {
		t.Fatalf("PutEmbedding: %v", err)
	}
	got, err := eng.Search(context.Background(), "deploy", ModeHybrid, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %+v, want 2", got)
	}
	if got[0].ID != "n1" || got[0].Source != "semantic" {
		t.Errorf("first hit = %+v, want semantic n1", got[0])
	}
}

// ─── Graph ───

func relate(src, tgt string, rt entity.RelationType) *entity.Relation {
	return &entity.Relation{
		SourceID: src, TargetID: tgt, Type: rt,
		SourceType: entity.TypeNote, TargetType: entity.TypeNote,
		CreatedAt: time.Now().UTC(),
	}
}

func TestFindPath_AcrossDirections(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{
		entities: []entity.Entity{
			note("a", "a", ""), note("b", "b", ""), note("c", "c", ""),
		},
		relations: []*entity.Relation{
			relate("a", "b", entity.RelReferences),
			relate("c", "b", entity.RelDependsOn), // must be traversed reversed
		},
	})
	path, err := eng.FindPath("a", "c", -1)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path == nil {
		t.Fatal("path not found")
	}
	wantNodes := []string{"a", "b", "c"}
	if len(path.Nodes) != 3 {
		t.Fatalf("Nodes = %v", path.Nodes)
	}
	for i, n := range wantNodes {
		if path.Nodes[i] != n {
			t.Errorf("Nodes[%d] = %q, want %q", i, path.Nodes[i], n)
		}
	}
	if len(path.Steps) != 2 || path.Steps[1].Reversed != true {
		t.Errorf("Steps = %+v, want second reversed", path.Steps)
	}
}

func TestFindPath_NoPath(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{
		entities: []entity.Entity{note("a", "a", ""), note("z", "z", "")},
	})
	path, err := eng.FindPath("a", "z", -1)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Errorf("path = %+v, want nil", path)
	}
}

func TestFindPath_DepthBound(t *testing.T) {
	// Chain a-b-c-d, search with depth 2: unreachable.
	eng, _ := newFixture(t, &fixtureSource{
		entities: []entity.Entity{
			note("a", "a", ""), note("b", "b", ""),
			note("c", "c", ""), note("d", "d", ""),
		},
		relations: []*entity.Relation{
			relate("a", "b", entity.RelRelatesTo),
			relate("b", "c", entity.RelRelatesTo),
			relate("c", "d", entity.RelRelatesTo),
		},
	})
	path, err := eng.FindPath("a", "d", 2)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Errorf("depth-limited path = %+v, want nil", path)
	}
}

func TestFindPath_UnknownEndpoint(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{entities: []entity.Entity{note("a", "a", "")}})
	_, err := eng.FindPath("a", "ghost", -1)
	if got := merr.CodeOf(err); got != merr.CodeEntityNotFound {
		t.Errorf("error code = %d, want %d", got, merr.CodeEntityNotFound)
	}
}

func TestOrphans(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{
		entities: []entity.Entity{
			note("a", "a", ""), note("b", "b", ""), note("alone", "alone", ""),
		},
		relations: []*entity.Relation{relate("a", "b", entity.RelRelatesTo)},
	})
	got, err := eng.Orphans(0, "")
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(got) != 1 || got[0].ID != "alone" {
		t.Errorf("Orphans = %+v", got)
	}
}

func TestFindPath_ZeroDepth(t *testing.T) {
	eng, _ := newFixture(t, &fixtureSource{
		entities: []entity.Entity{note("a", "a", ""), note("b", "b", "")},
		relations: []*entity.Relation{
			relate("a", "b", entity.RelRelatesTo),
		},
	})
	path, err := eng.FindPath("a", "b", 0)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if path != nil {
		t.Errorf("zero-depth path = %+v, want nil", path)
	}
	same, err := eng.FindPath("a", "a", 0)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if same == nil || len(same.Nodes) != 1 {
		t.Errorf("self path = %+v, want single node", same)
	}
}
