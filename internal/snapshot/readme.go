package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/medullahq/medulla/internal/entity"
)

type activityEntry struct {
	kind    string
	title   string
	link    string
	status  string
	updated int64
	seq     int
}

func renderReadme(m *model, dir string, stats *Stats) error {
	var b strings.Builder
	b.WriteString("# Project Knowledge Base\n\n")
	b.WriteString("> Auto-generated by medulla. Do not edit directly.\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Type | Count |\n")
	b.WriteString("|------|-------|\n")
	fmt.Fprintf(&b, "| Decisions | %d |\n", stats.Decisions)
	fmt.Fprintf(&b, "| Tasks | %d (%d active) |\n", stats.TasksTotal, stats.TasksActive)
	fmt.Fprintf(&b, "| Notes | %d |\n", stats.Notes)
	fmt.Fprintf(&b, "| Prompts | %d |\n", stats.Prompts)
	fmt.Fprintf(&b, "| Components | %d |\n", stats.Components)
	fmt.Fprintf(&b, "| Links | %d |\n", stats.Links)
	b.WriteString("\n")

	if stats.TotalEntities() == 0 {
		b.WriteString("*No entities yet. Use `medulla add` to create your first entity.*\n\n")
	} else {
		writeRecentActivity(&b, m)
		writeQuickLinks(&b, m, stats)
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*Generated: %s*\n", formatTimestamp(m.lastUpdated()))
	return writeFile(dir, "README.md", b.String())
}

func writeRecentActivity(b *strings.Builder, m *model) {
	var entries []activityEntry
	for _, d := range m.decisions {
		entries = append(entries, activityEntry{
			kind:    "Decision",
			title:   d.Title,
			link:    fmt.Sprintf("decisions/%03d-%s.md", d.SequenceNumber, slugify(d.Title)),
			status:  string(d.Status),
			updated: d.UpdatedAt.UnixNano(),
			seq:     d.SequenceNumber,
		})
	}
	for _, task := range m.tasks {
		if task.Status == entity.TaskDone {
			continue
		}
		entries = append(entries, activityEntry{
			kind:    "Task",
			title:   task.Title,
			link:    fmt.Sprintf("tasks/active.md#%d", task.SequenceNumber),
			status:  string(task.Status),
			updated: task.UpdatedAt.UnixNano(),
			seq:     task.SequenceNumber,
		})
	}
	for _, n := range m.notes {
		entries = append(entries, activityEntry{
			kind: "Note", title: n.Title,
			link:   fmt.Sprintf("notes/%s.md", slugify(n.Title)),
			status: n.NoteType, updated: n.UpdatedAt.UnixNano(), seq: n.SequenceNumber,
		})
	}
	for _, p := range m.prompts {
		entries = append(entries, activityEntry{
			kind: "Prompt", title: p.Title,
			link:    fmt.Sprintf("prompts/%s.md", slugify(p.Title)),
			updated: p.UpdatedAt.UnixNano(), seq: p.SequenceNumber,
		})
	}
	for _, c := range m.components {
		entries = append(entries, activityEntry{
			kind: "Component", title: c.Title,
			link:   fmt.Sprintf("components/%s.md", slugify(c.Title)),
			status: string(c.Status), updated: c.UpdatedAt.UnixNano(), seq: c.SequenceNumber,
		})
	}
	for _, l := range m.links {
		entries = append(entries, activityEntry{
			kind: "Link", title: l.Title,
			link:   fmt.Sprintf("links/%s.md", slugify(l.Title)),
			status: l.LinkType, updated: l.UpdatedAt.UnixNano(), seq: l.SequenceNumber,
		})
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].updated != entries[j].updated {
			return entries[i].updated > entries[j].updated
		}
		if entries[i].kind != entries[j].kind {
			return entries[i].kind < entries[j].kind
		}
		return entries[i].seq < entries[j].seq
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}
	b.WriteString("## Recent Activity\n\n")
	for _, e := range entries {
		status := ""
		if e.status != "" {
			status = " - " + e.status
		}
		fmt.Fprintf(b, "- **%s**: [%s](%s)%s\n", e.kind, e.title, e.link, status)
	}
	b.WriteString("\n")
}

func writeQuickLinks(b *strings.Builder, m *model, stats *Stats) {
	b.WriteString("## Quick Links\n\n")

	if len(m.decisions) > 0 {
		b.WriteString("### Decisions\n\n")
		sorted := append([]*entity.Decision(nil), m.decisions...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })
		for _, d := range sorted {
			fmt.Fprintf(b, "- [%03d - %s](decisions/%03d-%s.md) `%s`\n",
				d.SequenceNumber, d.Title, d.SequenceNumber, slugify(d.Title), d.Status)
		}
		b.WriteString("\n")
	}

	if stats.TasksActive > 0 {
		b.WriteString("### Active Tasks\n\nSee [tasks/active.md](tasks/active.md)\n\n")
	}

	if len(m.components) > 0 {
		b.WriteString("### Components\n\n")
		sorted := append([]*entity.Component(nil), m.components...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })
		for _, c := range sorted {
			fmt.Fprintf(b, "- [%s](components/%s.md) `%s`\n", c.Title, slugify(c.Title), c.Status)
		}
		b.WriteString("\n")
	}

	if len(m.notes) > 0 {
		b.WriteString("### Notes\n\n")
		sorted := append([]*entity.Note(nil), m.notes...)
		sort.Slice(sorted, func(i, j int) bool {
			if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
				return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
			}
			return sorted[i].SequenceNumber < sorted[j].SequenceNumber
		})
		shown := sorted
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, n := range shown {
			kind := ""
			if n.NoteType != "" {
				kind = fmt.Sprintf(" `%s`", n.NoteType)
			}
			fmt.Fprintf(b, "- [%s](notes/%s.md)%s\n", n.Title, slugify(n.Title), kind)
		}
		if len(sorted) > 5 {
			fmt.Fprintf(b, "\n*...and %d more notes*\n", len(sorted)-5)
		}
		b.WriteString("\n")
	}

	if len(m.prompts) > 0 {
		b.WriteString("### Prompts\n\n")
		sorted := append([]*entity.Prompt(nil), m.prompts...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })
		for _, p := range sorted {
			fmt.Fprintf(b, "- [%s](prompts/%s.md)\n", p.Title, slugify(p.Title))
		}
		b.WriteString("\n")
	}

	if len(m.links) > 0 {
		b.WriteString("### Links\n\n")
		sorted := append([]*entity.Link(nil), m.links...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].SequenceNumber < sorted[j].SequenceNumber })
		for _, l := range sorted {
			kind := ""
			if l.LinkType != "" {
				kind = fmt.Sprintf(" `%s`", l.LinkType)
			}
			fmt.Fprintf(b, "- [%s](links/%s.md)%s\n", l.Title, slugify(l.Title), kind)
		}
		b.WriteString("\n")
	}
}
