package domain

import "errors"

var (
	// ErrTaskNotFound indicates that no column holds a task with the given id.
	ErrTaskNotFound    = errors.New("task not found")
	ErrUnknownStatus   = errors.New("unknown task status")
	ErrUnknownPriority = errors.New("unknown task priority")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrSelfDependency  = errors.New("task cannot depend on itself")
	// ErrDependenciesPending rejects a move into Done while a dependency is not Done.
	ErrDependenciesPending = errors.New("task has dependencies that are not done")
)
