package snapshot

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medullahq/medulla/internal/entity"
)

type pageFrontmatter struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Kind    string   `yaml:"kind,omitempty"`
	Status  string   `yaml:"status,omitempty"`
	Path    string   `yaml:"path,omitempty"`
	URL     string   `yaml:"url,omitempty"`
	Created string   `yaml:"created"`
	Updated string   `yaml:"updated"`
	Tags    []string `yaml:"tags,omitempty"`
}

// renderPages writes the one-file-per-entity directories: notes, prompts,
// components and links.
func renderPages(m *model, dir string) (int, error) {
	files := 0

	type page struct {
		title string
		body  string
	}
	render := func(subdir string, pages []page) error {
		s := newSlugger()
		for _, p := range pages {
			name := s.slug(p.title) + ".md"
			if err := writeFile(filepath.Join(dir, subdir), name, p.body); err != nil {
				return err
			}
			files++
		}
		return nil
	}

	notes := append([]*entity.Note(nil), m.notes...)
	sort.Slice(notes, func(i, j int) bool { return notes[i].SequenceNumber < notes[j].SequenceNumber })
	var notePages []page
	for _, n := range notes {
		fm := pageFrontmatter{
			ID: n.ID, Title: n.Title, Kind: n.NoteType,
			Created: formatDate(n.CreatedAt), Updated: formatDate(n.UpdatedAt), Tags: n.Tags,
		}
		notePages = append(notePages, page{n.Title, renderPage(fm, n.Title, n.Content, "")})
	}
	if err := render("notes", notePages); err != nil {
		return 0, err
	}

	prompts := append([]*entity.Prompt(nil), m.prompts...)
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].SequenceNumber < prompts[j].SequenceNumber })
	var promptPages []page
	for _, p := range prompts {
		fm := pageFrontmatter{
			ID: p.ID, Title: p.Title,
			Created: formatDate(p.CreatedAt), Updated: formatDate(p.UpdatedAt), Tags: p.Tags,
		}
		extra := fmt.Sprintf("\n## Template\n\n```\n%s\n```\n", p.Template)
		if p.OutputSchema != "" {
			extra += fmt.Sprintf("\n## Output Schema\n\n```json\n%s\n```\n", p.OutputSchema)
		}
		promptPages = append(promptPages, page{p.Title, renderPage(fm, p.Title, p.Content, extra)})
	}
	if err := render("prompts", promptPages); err != nil {
		return 0, err
	}

	components := append([]*entity.Component(nil), m.components...)
	sort.Slice(components, func(i, j int) bool {
		return components[i].SequenceNumber < components[j].SequenceNumber
	})
	var componentPages []page
	for _, c := range components {
		fm := pageFrontmatter{
			ID: c.ID, Title: c.Title, Status: string(c.Status), Path: c.Path,
			Created: formatDate(c.CreatedAt), Updated: formatDate(c.UpdatedAt), Tags: c.Tags,
		}
		extra := renderRelated(m.related[c.ID])
		componentPages = append(componentPages, page{c.Title, renderPage(fm, c.Title, c.Content, extra)})
	}
	if err := render("components", componentPages); err != nil {
		return 0, err
	}

	links := append([]*entity.Link(nil), m.links...)
	sort.Slice(links, func(i, j int) bool { return links[i].SequenceNumber < links[j].SequenceNumber })
	var linkPages []page
	for _, l := range links {
		fm := pageFrontmatter{
			ID: l.ID, Title: l.Title, Kind: l.LinkType, URL: l.URL,
			Created: formatDate(l.CreatedAt), Updated: formatDate(l.UpdatedAt), Tags: l.Tags,
		}
		extra := fmt.Sprintf("\n<%s>\n", l.URL)
		linkPages = append(linkPages, page{l.Title, renderPage(fm, l.Title, l.Content, extra)})
	}
	if err := render("links", linkPages); err != nil {
		return 0, err
	}

	return files, nil
}

func renderRelated(entries []relatedEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n## Related\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s #%d: %s (%s)\n", e.kind, e.seq, e.title, e.relType)
	}
	return b.String()
}

func renderPage(fm pageFrontmatter, title, content, extra string) string {
	head, err := yaml.Marshal(&fm)
	if err != nil {
		head = []byte{}
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", title)
	if content != "" {
		fmt.Fprintf(&b, "\n%s\n", content)
	}
	b.WriteString(extra)
	return b.String()
}
