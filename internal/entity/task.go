package entity

import (
	"strings"

	"github.com/medullahq/medulla/internal/merr"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// TaskPriority orders tasks in the ready queue.
type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityHigh   TaskPriority = "high"
	PriorityNormal TaskPriority = "normal"
	PriorityLow    TaskPriority = "low"
)

// ParseTaskStatus parses a status name, accepting the compact alias
// "inprogress". Empty input defaults to todo.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "todo":
		return TaskTodo, nil
	case "in_progress", "inprogress":
		return TaskInProgress, nil
	case "done":
		return TaskDone, nil
	case "blocked":
		return TaskBlocked, nil
	}
	return "", merr.Validation("status", "invalid task status: %q", s)
}

// ParseTaskPriority parses a priority name. Empty input defaults to normal.
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "urgent":
		return PriorityUrgent, nil
	case "high":
		return PriorityHigh, nil
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return "", merr.Validation("priority", "invalid task priority: %q", s)
}

// Rank returns the sort weight of a priority, urgent first.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 4
	default:
		return 3
	}
}

// Task is a unit of work, orderable by priority and due date.
type Task struct {
	Base
	Status   TaskStatus   `json:"status"`
	Priority TaskPriority `json:"priority"`
	DueDate  string       `json:"due_date,omitempty"`
	Assignee string       `json:"assignee,omitempty"`
}

func (t *Task) EntityType() Type { return TypeTask }

func (t *Task) Validate() error {
	if err := t.validateBase(); err != nil {
		return err
	}
	status, err := ParseTaskStatus(string(t.Status))
	if err != nil {
		return err
	}
	t.Status = status
	priority, err := ParseTaskPriority(string(t.Priority))
	if err != nil {
		return err
	}
	t.Priority = priority
	if t.DueDate != "" {
		if err := ValidateDate("due_date", t.DueDate); err != nil {
			return err
		}
	}
	return nil
}
