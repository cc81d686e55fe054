package snapshot

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medullahq/medulla/internal/entity"
)

var priorityGroups = []struct {
	priority entity.TaskPriority
	heading  string
}{
	{entity.PriorityUrgent, "Urgent"},
	{entity.PriorityHigh, "High Priority"},
	{entity.PriorityNormal, "Normal Priority"},
	{entity.PriorityLow, "Low Priority"},
}

func renderTasks(m *model, dir string) (int, error) {
	if len(m.tasks) == 0 {
		return 0, nil
	}
	var active, completed []*entity.Task
	for _, task := range m.tasks {
		if task.Status == entity.TaskDone {
			completed = append(completed, task)
		} else {
			active = append(active, task)
		}
	}
	subdir := filepath.Join(dir, "tasks")
	files := 0
	if len(active) > 0 {
		if err := writeFile(subdir, "active.md", renderActive(active, m.blockers)); err != nil {
			return 0, err
		}
		files++
	}
	if len(completed) > 0 {
		if err := writeFile(subdir, "completed.md", renderCompleted(completed)); err != nil {
			return 0, err
		}
		files++
	}
	return files, nil
}

func renderActive(tasks []*entity.Task, blockers map[string][]int) string {
	var b strings.Builder
	b.WriteString("# Active Tasks\n")
	for _, group := range priorityGroups {
		var inGroup []*entity.Task
		for _, task := range tasks {
			if task.Priority == group.priority {
				inGroup = append(inGroup, task)
			}
		}
		if len(inGroup) == 0 {
			continue
		}
		sort.Slice(inGroup, func(i, j int) bool {
			return inGroup[i].SequenceNumber < inGroup[j].SequenceNumber
		})
		fmt.Fprintf(&b, "\n## %s\n\n", group.heading)
		for _, task := range inGroup {
			b.WriteString(renderActiveTask(task, blockers[task.ID]))
		}
	}
	return b.String()
}

func renderActiveTask(task *entity.Task, blockedBy []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [ ] **%s** `#%d` `(%s)`", task.Title, task.SequenceNumber, task.ShortID())
	if task.Status == entity.TaskInProgress {
		b.WriteString(" _(in progress)_")
	}
	if len(blockedBy) > 0 {
		sort.Ints(blockedBy)
		refs := make([]string, len(blockedBy))
		for i, seq := range blockedBy {
			refs[i] = fmt.Sprintf("#%d", seq)
		}
		fmt.Fprintf(&b, " ⛔ blocked by %s", strings.Join(refs, ", "))
	}
	b.WriteString("\n")
	var meta []string
	if task.DueDate != "" {
		meta = append(meta, "due: "+task.DueDate)
	}
	if task.Assignee != "" {
		meta = append(meta, "assignee: "+task.Assignee)
	}
	if len(task.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(task.Tags, ", "))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "  - %s\n", strings.Join(meta, " | "))
	}
	return b.String()
}

func renderCompleted(tasks []*entity.Task) string {
	sorted := append([]*entity.Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].SequenceNumber < sorted[j].SequenceNumber
	})
	var b strings.Builder
	b.WriteString("# Completed Tasks\n\n")
	for _, task := range sorted {
		fmt.Fprintf(&b, "- [x] **%s** `#%d` - Completed %s\n",
			task.Title, task.SequenceNumber, formatDate(task.UpdatedAt))
	}
	return b.String()
}
