package board

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

func TestAddDependency(t *testing.T) {
	s, remote, persister, _ := newTestStore(t)
	mustAdd(t, s, "a", domain.StatusTodo)
	mustAdd(t, s, "b", domain.StatusTodo)
	remote.Reset()
	saves := persister.saves

	task, err := s.AddDependency(context.Background(), "t2", "t1")
	if err != nil {
		t.Fatalf("add dependency: %v", err)
	}
	if !slices.Equal(task.Dependencies, []string{"t1"}) {
		t.Fatalf("unexpected dependencies: %v", task.Dependencies)
	}
	calls := remote.Calls()
	if len(calls) != 1 || calls[0].op != "update" || calls[0].id != "t2" {
		t.Fatalf("unexpected remote calls: %#v", calls)
	}
	if persister.saves != saves+1 {
		t.Fatal("expected a snapshot after adding a dependency")
	}

	// second add is a no-op
	task, err = s.AddDependency(context.Background(), "t2", "t1")
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if !slices.Equal(task.Dependencies, []string{"t1"}) || len(remote.Calls()) != 1 {
		t.Fatalf("expected duplicate dependency to be ignored: %v", task.Dependencies)
	}
}

func TestAddDependencyRejectsSelfAndUnknown(t *testing.T) {
	s, remote, _, _ := newTestStore(t)
	mustAdd(t, s, "a", domain.StatusTodo)
	remote.Reset()

	if _, err := s.AddDependency(context.Background(), "t1", "t1"); !errors.Is(err, domain.ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
	if _, err := s.AddDependency(context.Background(), "t1", "nope"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for unknown dependency, got %v", err)
	}
	if _, err := s.AddDependency(context.Background(), "nope", "t1"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for unknown task, got %v", err)
	}
	if len(remote.Calls()) != 0 {
		t.Fatal("unexpected remote calls")
	}
}

func TestRemoveDependency(t *testing.T) {
	s, remote, _, _ := newTestStore(t)
	mustAdd(t, s, "a", domain.StatusTodo)
	mustAdd(t, s, "b", domain.StatusTodo)
	mustAdd(t, s, "c", domain.StatusTodo, "t1", "t2")
	remote.Reset()

	task, err := s.RemoveDependency(context.Background(), "t3", "t1")
	if err != nil {
		t.Fatalf("remove dependency: %v", err)
	}
	if !slices.Equal(task.Dependencies, []string{"t2"}) {
		t.Fatalf("unexpected dependencies: %v", task.Dependencies)
	}
	if _, err := s.RemoveDependency(context.Background(), "t3", "t1"); err != nil {
		t.Fatalf("removing an absent dependency: %v", err)
	}
	if len(remote.Calls()) != 1 {
		t.Fatalf("expected one remote update, got %d", len(remote.Calls()))
	}
}

func TestGetDependenciesSkipsDeletedTasks(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	mustAdd(t, s, "a", domain.StatusTodo)
	mustAdd(t, s, "b", domain.StatusDone)
	mustAdd(t, s, "c", domain.StatusTodo, "t1", "t2")

	if _, err := s.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	deps, err := s.GetDependencies("t3")
	if err != nil {
		t.Fatalf("get dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].ID != "t2" || deps[0].Status != domain.StatusDone {
		t.Fatalf("unexpected dependencies: %#v", deps)
	}
	if task, _ := s.Task("t3"); !slices.Equal(task.Dependencies, []string{"t1", "t2"}) {
		t.Fatalf("stored ids should be left untouched, got %v", task.Dependencies)
	}
	if _, err := s.GetDependencies("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestGetDependents(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	mustAdd(t, s, "base", domain.StatusTodo)
	mustAdd(t, s, "first", domain.StatusInProgress, "t1")
	mustAdd(t, s, "unrelated", domain.StatusTodo)
	mustAdd(t, s, "second", domain.StatusDone, "t1")

	dependents, err := s.GetDependents("t1")
	if err != nil {
		t.Fatalf("get dependents: %v", err)
	}
	ids := make([]string, len(dependents))
	for i, d := range dependents {
		ids[i] = d.ID
	}
	if !slices.Equal(ids, []string{"t2", "t4"}) {
		t.Fatalf("unexpected dependents: %v", ids)
	}
	if _, err := s.GetDependents("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDependencyErrorMessage(t *testing.T) {
	err := &DependencyError{TaskID: "t3", Pending: []string{"t1", "t2"}}
	if got := err.Error(); got != "task t3 has dependencies that are not done: t1, t2" {
		t.Fatalf("unexpected message: %q", got)
	}
}
