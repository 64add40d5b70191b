package board

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

type remoteCall struct {
	op   string
	id   string
	task domain.Task
}

type fakeRemote struct {
	mu       sync.Mutex
	calls    []remoteCall
	fetched  []domain.Task
	fetchErr error
}

func (f *fakeRemote) Fetch(ctx context.Context) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{op: "fetch"})
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return cloneTasks(f.fetched), nil
}

func (f *fakeRemote) Create(task domain.Task) { f.record(remoteCall{op: "create", id: task.ID, task: task}) }
func (f *fakeRemote) Update(task domain.Task) { f.record(remoteCall{op: "update", id: task.ID, task: task}) }
func (f *fakeRemote) Delete(id string)        { f.record(remoteCall{op: "delete", id: id}) }

func (f *fakeRemote) record(c remoteCall) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeRemote) Calls() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

type memPersister struct {
	board   *domain.Board
	saves   int
	saveErr error
	loadErr error
}

func (m *memPersister) Load(ctx context.Context) (domain.Board, bool, error) {
	if m.loadErr != nil {
		return domain.Board{}, false, m.loadErr
	}
	if m.board == nil {
		return domain.Board{}, false, nil
	}
	return m.board.Clone(), true, nil
}

func (m *memPersister) Save(ctx context.Context, b domain.Board) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := b.Clone()
	m.board = &cp
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeRemote, *memPersister, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	remote := &fakeRemote{}
	persister := &memPersister{}
	s := NewStore(remote, persister, logger)

	var seq int
	s.newID = func() string {
		seq++
		return fmt.Sprintf("t%d", seq)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
	return s, remote, persister, hook
}

func mustAdd(t *testing.T, s *Store, title string, status domain.Status, deps ...string) domain.Task {
	t.Helper()
	task, err := s.AddTask(context.Background(), domain.NewTask{
		Title:        title,
		Status:       status,
		Priority:     domain.PriorityMedium,
		DueDate:      "2024-03-10",
		Dependencies: deps,
	})
	if err != nil {
		t.Fatalf("add %s: %v", title, err)
	}
	return task
}

func columnIDs(b domain.Board, s domain.Status) []string {
	col := b.Column(s)
	ids := make([]string, len(col.Tasks))
	for i, t := range col.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func columnOrders(b domain.Board, s domain.Status) []int {
	col := b.Column(s)
	orders := make([]int, len(col.Tasks))
	for i, t := range col.Tasks {
		orders[i] = t.Order
	}
	return orders
}

func assertContiguous(t *testing.T, b domain.Board, s domain.Status) {
	t.Helper()
	for i, t2 := range b.Column(s).Tasks {
		if t2.Order != i {
			t.Fatalf("column %s not contiguous: orders %v", s, columnOrders(b, s))
		}
	}
}

func ptr[T any](v T) *T { return &v }
