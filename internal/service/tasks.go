package service

import (
	"context"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// BlockedTask pairs a blocked task with the active tasks blocking it.
type BlockedTask struct {
	*cache.TaskSummary
	BlockedBy []*cache.TaskSummary `json:"blocked_by"`
}

// ReadyTasks returns unblocked, not-done tasks in priority order. A
// non-empty priority narrows the list to that priority alone.
func (s *Service) ReadyTasks(limit int, priority string) ([]*cache.TaskSummary, error) {
	if priority != "" {
		p, err := entity.ParseTaskPriority(priority)
		if err != nil {
			return nil, err
		}
		priority = string(p)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.ReadyTasks(limit, priority)
}

// BlockedTasks returns blocked tasks together with their blockers.
func (s *Service) BlockedTasks(limit int) ([]*BlockedTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blocked, err := s.cache.BlockedTasks(limit)
	if err != nil {
		return nil, err
	}
	out := make([]*BlockedTask, 0, len(blocked))
	for _, task := range blocked {
		blockers, err := s.cache.TaskBlockers(task.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &BlockedTask{TaskSummary: task, BlockedBy: blockers})
	}
	return out, nil
}

// TaskBlockers returns the active tasks blocking one resolved task.
func (s *Service) TaskBlockers(ref string) ([]*cache.TaskSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if t != entity.TypeTask {
		return nil, merr.Validation("id", "%s is a %s, not a task", ref, t)
	}
	return s.cache.TaskBlockers(id)
}

// NextTask returns the single best ready task, nil when none.
func (s *Service) NextTask() (*cache.TaskSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.NextTask()
}

// TasksDue returns not-done tasks due on or before date.
func (s *Service) TasksDue(date string, limit int) ([]*cache.TaskSummary, error) {
	if err := entity.ValidateDate("date", date); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.TasksDue(date, limit)
}

// CompleteTask marks the resolved task done.
func (s *Service) CompleteTask(ctx context.Context, ref string) (*entity.Task, error) {
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if t != entity.TypeTask {
		return nil, merr.Validation("id", "%s is a %s, not a task", ref, t)
	}
	e, err := s.store.Update(t, id, func(e entity.Entity) error {
		e.(*entity.Task).Status = entity.TaskDone
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, change{t, id}); err != nil {
		return nil, err
	}
	return e.(*entity.Task), nil
}

// RescheduleTask moves the resolved task's due date.
func (s *Service) RescheduleTask(ctx context.Context, ref, dueDate string) (*entity.Task, error) {
	if err := entity.ValidateDate("due_date", dueDate); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.notifyPending()
	defer s.mu.Unlock()
	t, id, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	if t != entity.TypeTask {
		return nil, merr.Validation("id", "%s is a %s, not a task", ref, t)
	}
	e, err := s.store.Update(t, id, func(e entity.Entity) error {
		e.(*entity.Task).DueDate = dueDate
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, change{t, id}); err != nil {
		return nil, err
	}
	return e.(*entity.Task), nil
}
