// Package snapshot renders the knowledge base as deterministic markdown
// under .medulla/snapshot, the human- and diff-readable view committed to
// git. Identical store state always produces identical bytes.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/medullahq/medulla/internal/entity"
)

// Source provides the data the renderer reads.
type Source interface {
	ListAll() ([]entity.Entity, error)
	ListRelations() ([]*entity.Relation, error)
}

// Stats counts what a generation produced.
type Stats struct {
	Decisions   int `json:"decisions"`
	TasksTotal  int `json:"tasks_total"`
	TasksActive int `json:"tasks_active"`
	Notes       int `json:"notes"`
	Prompts     int `json:"prompts"`
	Components  int `json:"components"`
	Links       int `json:"links"`
	Files       int `json:"files"`
}

func (s *Stats) TotalEntities() int {
	return s.Decisions + s.TasksTotal + s.Notes + s.Prompts + s.Components + s.Links
}

// model is the materialized store content a single generation works from.
type model struct {
	decisions  []*entity.Decision
	tasks      []*entity.Task
	notes      []*entity.Note
	prompts    []*entity.Prompt
	components []*entity.Component
	links      []*entity.Link
	blockers   map[string][]int          // task id -> blocking task sequence numbers
	related    map[string][]relatedEntry // component id -> linked entities
}

// relatedEntry is one edge endpoint as rendered on a component page.
type relatedEntry struct {
	kind    string
	seq     int
	title   string
	relType string
}

// Generate rebuilds the snapshot directory from scratch.
func Generate(src Source, dir string) (*Stats, error) {
	m, err := load(src)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing snapshot dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	stats := &Stats{
		Decisions:  len(m.decisions),
		TasksTotal: len(m.tasks),
		Notes:      len(m.notes),
		Prompts:    len(m.prompts),
		Components: len(m.components),
		Links:      len(m.links),
	}
	for _, task := range m.tasks {
		if task.Status != entity.TaskDone {
			stats.TasksActive++
		}
	}

	files, err := renderDecisions(m, dir)
	if err != nil {
		return nil, err
	}
	stats.Files += files
	files, err = renderTasks(m, dir)
	if err != nil {
		return nil, err
	}
	stats.Files += files
	files, err = renderPages(m, dir)
	if err != nil {
		return nil, err
	}
	stats.Files += files
	if err := renderReadme(m, dir, stats); err != nil {
		return nil, err
	}
	stats.Files++
	return stats, nil
}

func load(src Source) (*model, error) {
	all, err := src.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	m := &model{blockers: map[string][]int{}, related: map[string][]relatedEntry{}}
	taskSeq := map[string]int{}
	taskDone := map[string]bool{}
	refs := map[string]relatedEntry{}
	componentIDs := map[string]bool{}
	for _, e := range all {
		b := e.Meta()
		refs[b.ID] = relatedEntry{
			kind: string(e.EntityType()), seq: b.SequenceNumber, title: b.Title,
		}
		switch v := e.(type) {
		case *entity.Decision:
			m.decisions = append(m.decisions, v)
		case *entity.Task:
			m.tasks = append(m.tasks, v)
			taskSeq[v.ID] = v.SequenceNumber
			taskDone[v.ID] = v.Status == entity.TaskDone
		case *entity.Note:
			m.notes = append(m.notes, v)
		case *entity.Prompt:
			m.prompts = append(m.prompts, v)
		case *entity.Component:
			m.components = append(m.components, v)
			componentIDs[v.ID] = true
		case *entity.Link:
			m.links = append(m.links, v)
		}
	}
	relations, err := src.ListRelations()
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	for _, r := range relations {
		// Dangling edges (an endpoint was deleted) are skipped via the
		// refs lookups below.
		if componentIDs[r.SourceID] {
			if other, ok := refs[r.TargetID]; ok {
				other.relType = string(r.Type)
				m.related[r.SourceID] = append(m.related[r.SourceID], other)
			}
		}
		if componentIDs[r.TargetID] && r.TargetID != r.SourceID {
			if other, ok := refs[r.SourceID]; ok {
				other.relType = string(r.Type)
				m.related[r.TargetID] = append(m.related[r.TargetID], other)
			}
		}
		if r.Type != entity.RelBlocks {
			continue
		}
		seq, ok := taskSeq[r.SourceID]
		if !ok || taskDone[r.SourceID] {
			continue
		}
		m.blockers[r.TargetID] = append(m.blockers[r.TargetID], seq)
	}
	for _, entries := range m.related {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].kind != entries[j].kind {
				return entries[i].kind < entries[j].kind
			}
			if entries[i].seq != entries[j].seq {
				return entries[i].seq < entries[j].seq
			}
			return entries[i].relType < entries[j].relType
		})
	}
	return m, nil
}

// lastUpdated is the newest UpdatedAt across the store; it anchors the
// generated-at footer so re-rendering unchanged state is byte-identical.
func (m *model) lastUpdated() time.Time {
	var latest time.Time
	consider := func(b *entity.Base) {
		if b.UpdatedAt.After(latest) {
			latest = b.UpdatedAt
		}
	}
	for _, d := range m.decisions {
		consider(&d.Base)
	}
	for _, t := range m.tasks {
		consider(&t.Base)
	}
	for _, n := range m.notes {
		consider(&n.Base)
	}
	for _, p := range m.prompts {
		consider(&p.Base)
	}
	for _, c := range m.components {
		consider(&c.Base)
	}
	for _, l := range m.links {
		consider(&l.Base)
	}
	return latest
}
