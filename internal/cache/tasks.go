package cache

import (
	"database/sql"
	"fmt"
)

// Limits on result sizes, shared with the tool layer.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ClampLimit normalizes a caller-supplied limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// TaskSummary is a task row as returned by the queue queries.
type TaskSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	DueDate        string `json:"due_date,omitempty"`
	Assignee       string `json:"assignee,omitempty"`
	SequenceNumber int    `json:"sequence_number"`
}

// taskOrder ranks urgent first, then nearest due date (nulls last), then
// insertion order.
const taskOrder = `
ORDER BY CASE priority
    WHEN 'urgent' THEN 1
    WHEN 'high' THEN 2
    WHEN 'normal' THEN 3
    WHEN 'low' THEN 4
    ELSE 3 END,
  due_date IS NULL, due_date, sequence_number`

// blockedSubquery selects ids of tasks blocked by a not-done task.
const blockedSubquery = `
SELECT r.target_id FROM relations r
JOIN entities b ON b.id = r.source_id
WHERE r.relation_type = 'blocks' AND b.type = 'task' AND b.status != 'done'`

const taskColumns = `id, title, status, priority, due_date, assignee, sequence_number`

// ReadyTasks returns unblocked, not-done tasks in priority order. A
// non-empty priority narrows the queue to that level.
func (c *Cache) ReadyTasks(limit int, priority string) ([]*TaskSummary, error) {
	var (
		prioClause string
		args       []any
	)
	if priority != "" {
		prioClause = " AND priority = ?"
		args = append(args, priority)
	}
	query := fmt.Sprintf(`
SELECT %s FROM entities
WHERE type = 'task' AND status != 'done' AND id NOT IN (%s)%s %s
LIMIT ?`, taskColumns, blockedSubquery, prioClause, taskOrder)
	args = append(args, ClampLimit(limit))
	return c.queryTasks(query, args...)
}

// BlockedTasks returns not-done tasks with at least one active blocker.
func (c *Cache) BlockedTasks(limit int) ([]*TaskSummary, error) {
	query := fmt.Sprintf(`
SELECT %s FROM entities
WHERE type = 'task' AND status != 'done' AND id IN (%s) %s
LIMIT ?`, taskColumns, blockedSubquery, taskOrder)
	return c.queryTasks(query, ClampLimit(limit))
}

// TaskBlockers returns the active tasks blocking the given one.
func (c *Cache) TaskBlockers(id string) ([]*TaskSummary, error) {
	query := fmt.Sprintf(`
SELECT %s FROM entities
WHERE type = 'task' AND status != 'done' AND id IN (
    SELECT r.source_id FROM relations r
    WHERE r.relation_type = 'blocks' AND r.target_id = ?
) %s`, taskColumns, taskOrder)
	return c.queryTasks(query, id)
}

// NextTask returns the single highest-ranked ready task, nil when the queue
// is empty.
func (c *Cache) NextTask() (*TaskSummary, error) {
	tasks, err := c.ReadyTasks(1, "")
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}

// TasksDue returns not-done tasks due on or before the given date.
func (c *Cache) TasksDue(date string, limit int) ([]*TaskSummary, error) {
	query := fmt.Sprintf(`
SELECT %s FROM entities
WHERE type = 'task' AND status != 'done' AND due_date IS NOT NULL AND due_date <= ? %s
LIMIT ?`, taskColumns, taskOrder)
	return c.queryTasks(query, date, ClampLimit(limit))
}

func (c *Cache) queryTasks(query string, args ...any) ([]*TaskSummary, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()
	var out []*TaskSummary
	for rows.Next() {
		var t TaskSummary
		var due, assignee sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &due, &assignee, &t.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		t.DueDate = due.String
		t.Assignee = assignee.String
		out = append(out, &t)
	}
	return out, rows.Err()
}
