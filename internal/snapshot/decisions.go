package snapshot

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medullahq/medulla/internal/entity"
)

type decisionFrontmatter struct {
	ID           string   `yaml:"id"`
	Sequence     int      `yaml:"sequence"`
	Title        string   `yaml:"title"`
	Status       string   `yaml:"status"`
	Created      string   `yaml:"created"`
	Updated      string   `yaml:"updated"`
	CreatedBy    string   `yaml:"created_by,omitempty"`
	Tags         []string `yaml:"tags,omitempty"`
	SupersededBy string   `yaml:"superseded_by,omitempty"`
}

func renderDecisions(m *model, dir string) (int, error) {
	if len(m.decisions) == 0 {
		return 0, nil
	}
	sorted := append([]*entity.Decision(nil), m.decisions...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SequenceNumber < sorted[j].SequenceNumber
	})
	subdir := filepath.Join(dir, "decisions")
	for _, d := range sorted {
		name := fmt.Sprintf("%03d-%s.md", d.SequenceNumber, slugify(d.Title))
		if err := writeFile(subdir, name, renderDecision(d)); err != nil {
			return 0, err
		}
	}
	return len(sorted), nil
}

func renderDecision(d *entity.Decision) string {
	fm := decisionFrontmatter{
		ID:           d.ID,
		Sequence:     d.SequenceNumber,
		Title:        d.Title,
		Status:       string(d.Status),
		Created:      formatDate(d.CreatedAt),
		Updated:      formatDate(d.UpdatedAt),
		CreatedBy:    d.CreatedBy,
		Tags:         d.Tags,
		SupersededBy: d.SupersededBy,
	}
	head, err := yaml.Marshal(&fm)
	if err != nil {
		// Frontmatter is plain strings and ints; Marshal cannot fail here.
		head = []byte{}
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", d.Title)
	if d.Context != "" {
		fmt.Fprintf(&b, "\n## Context\n\n%s\n", d.Context)
	}
	if d.Content != "" {
		fmt.Fprintf(&b, "\n## Decision\n\n%s\n", d.Content)
	}
	if len(d.Consequences) > 0 {
		b.WriteString("\n## Consequences\n\n")
		for _, c := range d.Consequences {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}
