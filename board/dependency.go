package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// DependencyError reports the dependencies blocking a move into Done.
type DependencyError struct {
	TaskID  string
	Pending []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("task %s has dependencies that are not done: %s", e.TaskID, strings.Join(e.Pending, ", "))
}

func (e *DependencyError) Unwrap() error { return domain.ErrDependenciesPending }

// AddDependency records that taskID depends on dependencyID.
func (s *Store) AddDependency(ctx context.Context, taskID, dependencyID string) (domain.Task, error) {
	if taskID == dependencyID {
		return domain.Task{}, fmt.Errorf("add dependency %s: %w", taskID, domain.ErrSelfDependency)
	}
	return s.mutateDependencies(ctx, "add-dependency", taskID, dependencyID, func(t *domain.Task) bool {
		if t.DependsOn(dependencyID) {
			return false
		}
		t.Dependencies = append(t.Dependencies, dependencyID)
		return true
	})
}

// RemoveDependency drops dependencyID from the dependencies of taskID.
func (s *Store) RemoveDependency(ctx context.Context, taskID, dependencyID string) (domain.Task, error) {
	return s.mutateDependencies(ctx, "remove-dependency", taskID, dependencyID, func(t *domain.Task) bool {
		if !t.DependsOn(dependencyID) {
			return false
		}
		kept := make([]string, 0, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if dep != dependencyID {
				kept = append(kept, dep)
			}
		}
		t.Dependencies = kept
		return true
	})
}

func (s *Store) mutateDependencies(ctx context.Context, op, taskID, dependencyID string, mutate func(*domain.Task) bool) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, idx := s.locateLocked(taskID)
	if col == nil {
		return domain.Task{}, fmt.Errorf("%s: task %s: %w", op, taskID, domain.ErrTaskNotFound)
	}
	if dep, _ := s.locateLocked(dependencyID); dep == nil {
		return domain.Task{}, fmt.Errorf("%s: dependency %s: %w", op, dependencyID, domain.ErrTaskNotFound)
	}

	task := col.Tasks[idx].Clone()
	if !mutate(&task) {
		return task, nil
	}
	col.Tasks[idx] = task

	s.remote.Update(task.Clone())
	s.commitLocked(ctx, op)
	return task.Clone(), nil
}

// GetDependencies resolves the stored dependency ids of taskID against the
// current board. Ids of deleted tasks are skipped.
func (s *Store) GetDependencies(taskID string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, idx := s.locateLocked(taskID)
	if col == nil {
		return nil, fmt.Errorf("dependencies of %s: %w", taskID, domain.ErrTaskNotFound)
	}
	deps := make([]domain.Task, 0, len(col.Tasks[idx].Dependencies))
	for _, id := range col.Tasks[idx].Dependencies {
		if dc, di := s.locateLocked(id); dc != nil {
			deps = append(deps, dc.Tasks[di].Clone())
		}
	}
	return deps, nil
}

// GetDependents returns every task that lists taskID as a dependency.
func (s *Store) GetDependents(taskID string) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, _ := s.locateLocked(taskID); col == nil {
		return nil, fmt.Errorf("dependents of %s: %w", taskID, domain.ErrTaskNotFound)
	}
	out := []domain.Task{}
	for _, t := range s.board.Tasks() {
		if t.DependsOn(taskID) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (s *Store) pendingDependenciesLocked(task domain.Task) []string {
	var pending []string
	for _, id := range task.Dependencies {
		col, _ := s.locateLocked(id)
		if col != nil && col.ID != domain.StatusDone {
			pending = append(pending, id)
		}
	}
	return pending
}
