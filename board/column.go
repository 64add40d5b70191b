package board

import "github.com/Eduardo-Nightborn/TaskMaster/domain"

func indexOf(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// removeAt returns tasks without element i. The backing array is not shared
// with the input.
func removeAt(tasks []domain.Task, i int) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	out = append(out, tasks[:i]...)
	return append(out, tasks[i+1:]...)
}

// insertAt returns tasks with t placed at position i (0 <= i <= len(tasks)).
func insertAt(tasks []domain.Task, i int, t domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, t)
	return append(out, tasks[i:]...)
}

// reindex rewrites order so it matches array position.
func reindex(tasks []domain.Task) {
	for i := range tasks {
		tasks[i].Order = i
	}
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
