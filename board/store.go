package board

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// createdAtLayout matches the millisecond ISO format browsers produce.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Store holds the board state and applies every mutation to it.
//
// Mutations are applied locally first, then handed to the Remote without
// waiting, then persisted and broadcast. A failing remote call never rolls the
// local state back.
type Store struct {
	remote    Remote
	persister Persister
	logger    *log.Logger
	broker    *broker

	mu    sync.Mutex
	board domain.Board

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty store. persister may be nil to disable snapshots.
func NewStore(remote Remote, persister Persister, logger *log.Logger) *Store {
	if remote == nil {
		panic("board.NewStore: remote is nil")
	}
	if logger == nil {
		panic("board.NewStore: logger is nil")
	}
	return &Store{
		remote:    remote,
		persister: persister,
		logger:    logger,
		broker:    newBroker(),
		board:     domain.NewBoard(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load replaces the in-memory board with the persisted snapshot, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	b, ok, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load board snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	b.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = b
	s.broker.publish(s.board.Clone())
	s.logger.WithField("tasks", len(b.Tasks())).Debug("board snapshot restored")
	return nil
}

// AddTask appends a new task to the column named by data.Status.
func (s *Store) AddTask(ctx context.Context, data domain.NewTask) (domain.Task, error) {
	if !data.Status.Valid() {
		return domain.Task{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, data.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.board.Column(data.Status)
	task := domain.Task{
		ID:           s.newID(),
		Title:        data.Title,
		Description:  data.Description,
		Status:       data.Status,
		Priority:     data.Priority,
		DueDate:      data.DueDate,
		CreatedAt:    s.now().UTC().Format(createdAtLayout),
		Order:        len(col.Tasks),
		Dependencies: append([]string{}, data.Dependencies...),
	}
	col.Tasks = append(col.Tasks, task)

	s.remote.Create(task.Clone())
	s.commitLocked(ctx, "add")
	return task.Clone(), nil
}

// UpdateTask merges patch onto the task with the given id. A status change
// appends the task to its new column; orders are not recomputed.
func (s *Store) UpdateTask(ctx context.Context, id string, patch domain.Patch) (domain.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Task{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, *patch.Status)
	}
	if patch.Dependencies != nil && slices.Contains(*patch.Dependencies, id) {
		return domain.Task{}, fmt.Errorf("update %s: %w", id, domain.ErrSelfDependency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, idx := s.locateLocked(id)
	if col == nil {
		return domain.Task{}, fmt.Errorf("update %s: %w", id, domain.ErrTaskNotFound)
	}

	updated := patch.Apply(col.Tasks[idx])
	if updated.Status != col.ID {
		col.Tasks = removeAt(col.Tasks, idx)
		dst := s.board.Column(updated.Status)
		dst.Tasks = append(dst.Tasks, updated)
	} else {
		col.Tasks[idx] = updated
	}

	s.remote.Update(updated.Clone())
	s.commitLocked(ctx, "update")
	return updated.Clone(), nil
}

// DeleteTask removes the task from its column. Remaining orders keep their
// values, so the column may have gaps afterwards.
func (s *Store) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, idx := s.locateLocked(id)
	if col == nil {
		return domain.Task{}, fmt.Errorf("delete %s: %w", id, domain.ErrTaskNotFound)
	}
	removed := col.Tasks[idx]
	col.Tasks = removeAt(col.Tasks, idx)

	s.remote.Delete(id)
	s.commitLocked(ctx, "delete")
	return removed, nil
}

// MoveTask moves a task from source to destination at newIndex and reindexes
// both columns. Moving into Done is refused while a dependency is not Done.
func (s *Store) MoveTask(ctx context.Context, id string, source, destination domain.Status, newIndex int) (domain.Task, error) {
	if !source.Valid() {
		return domain.Task{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, source)
	}
	if !destination.Valid() {
		return domain.Task{}, fmt.Errorf("%w: %q", domain.ErrUnknownStatus, destination)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.board.Column(source)
	idx := indexOf(src.Tasks, id)
	if idx < 0 {
		return domain.Task{}, fmt.Errorf("move %s from %s: %w", id, source, domain.ErrTaskNotFound)
	}
	task := src.Tasks[idx].Clone()

	if destination == domain.StatusDone {
		if pending := s.pendingDependenciesLocked(task); len(pending) > 0 {
			s.logger.WithFields(log.Fields{"task": id, "pending": pending}).Info("move to done rejected")
			return task, &DependencyError{TaskID: id, Pending: pending}
		}
	}

	src.Tasks = removeAt(src.Tasks, idx)
	dst := s.board.Column(destination)
	newIndex = clamp(newIndex, 0, len(dst.Tasks))
	task.Status = destination
	task.Order = newIndex
	dst.Tasks = insertAt(dst.Tasks, newIndex, task)
	reindex(src.Tasks)
	reindex(dst.Tasks)

	moved := dst.Tasks[newIndex].Clone()
	s.remote.Update(moved)
	s.commitLocked(ctx, "move")
	return moved, nil
}

// ReorderTasks moves the task at startIndex to endIndex within one column and
// pushes every task of that column to the remote service.
func (s *Store) ReorderTasks(ctx context.Context, status domain.Status, startIndex, endIndex int) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.board.Column(status)
	if startIndex < 0 || startIndex >= len(col.Tasks) {
		return fmt.Errorf("reorder %s start %d of %d: %w", status, startIndex, len(col.Tasks), domain.ErrIndexOutOfRange)
	}
	task := col.Tasks[startIndex]
	tasks := removeAt(col.Tasks, startIndex)
	tasks = insertAt(tasks, clamp(endIndex, 0, len(tasks)), task)
	reindex(tasks)
	col.Tasks = tasks

	for _, t := range col.Tasks {
		s.remote.Update(t.Clone())
	}
	s.commitLocked(ctx, "reorder")
	return nil
}

// FetchTasks replaces the whole board with the remote task list, partitioned
// by status in the order received.
func (s *Store) FetchTasks(ctx context.Context) error {
	tasks, err := s.remote.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch tasks: %w", err)
	}

	next := domain.NewBoard()
	for _, t := range tasks {
		col := next.Column(t.Status)
		if col == nil {
			s.logger.WithFields(log.Fields{"task": t.ID, "status": t.Status}).Warn("dropping fetched task with unknown status")
			continue
		}
		if t.Dependencies == nil {
			t.Dependencies = []string{}
		}
		col.Tasks = append(col.Tasks, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = next
	s.commitLocked(ctx, "fetch")
	return nil
}

// GetAllTasks returns every task, Todo first, then InProgress, then Done.
func (s *Store) GetAllTasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.board.Tasks())
}

// Board returns a copy of the current board.
func (s *Store) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, idx := s.locateLocked(id)
	if col == nil {
		return domain.Task{}, false
	}
	return col.Tasks[idx].Clone(), true
}

// Subscribe returns a channel receiving the board after every change and a
// function that cancels the subscription. Received boards must not be modified.
func (s *Store) Subscribe() (<-chan domain.Board, func()) {
	ch := s.broker.subscribe()
	return ch, func() { s.broker.unsubscribe(ch) }
}

func (s *Store) locateLocked(id string) (*domain.Column, int) {
	for _, status := range domain.ColumnOrder {
		col := s.board.Column(status)
		if idx := indexOf(col.Tasks, id); idx >= 0 {
			return col, idx
		}
	}
	return nil, -1
}

func (s *Store) commitLocked(ctx context.Context, op string) {
	snapshot := s.board.Clone()
	if s.persister != nil {
		if err := s.persister.Save(ctx, snapshot); err != nil {
			s.logger.WithError(err).WithField("op", op).Error("persist board snapshot failed")
		}
	}
	s.broker.publish(snapshot)
	s.logger.WithFields(log.Fields{"op": op, "tasks": len(snapshot.Tasks())}).Debug("board updated")
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
