package board

import (
	"strings"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// TaskFilter narrows GetAllTasks. Empty fields match everything.
type TaskFilter struct {
	Status   domain.Status
	Priority domain.Priority
	// Title matches case-insensitively anywhere in the task title.
	Title string
}

func (f TaskFilter) match(t domain.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Title != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Title)) {
		return false
	}
	return true
}

// Filter returns the tasks matching f in GetAllTasks order.
func (s *Store) Filter(f TaskFilter) []domain.Task {
	out := []domain.Task{}
	for _, t := range s.GetAllTasks() {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Stats counts tasks per column.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Todo:       len(s.board.Columns.Todo.Tasks),
		InProgress: len(s.board.Columns.InProgress.Tasks),
		Done:       len(s.board.Columns.Done.Tasks),
	}
	st.Total = st.Todo + st.InProgress + st.Done
	return st
}
