package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

type recordingAPI struct {
	mu      sync.Mutex
	calls   map[string][]string
	failOn  string
	block   chan struct{}
	fetched []domain.Task
}

func newRecordingAPI() *recordingAPI {
	return &recordingAPI{calls: map[string][]string{}}
}

func (r *recordingAPI) record(id, op string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id] = append(r.calls[id], op)
	if op == r.failOn {
		return errors.New("remote unavailable")
	}
	return nil
}

func (r *recordingAPI) Fetch(ctx context.Context) ([]domain.Task, error) { return r.fetched, nil }

func (r *recordingAPI) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	return task, r.record(task.ID, "create")
}

func (r *recordingAPI) Update(ctx context.Context, task domain.Task) (domain.Task, error) {
	return task, r.record(task.ID, "update:"+task.Title)
}

func (r *recordingAPI) Delete(ctx context.Context, id string) (domain.Task, error) {
	return domain.Task{ID: id}, r.record(id, "delete")
}

func (r *recordingAPI) callsFor(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls[id]...)
}

func TestDispatcherKeepsPerTaskOrder(t *testing.T) {
	api := newRecordingAPI()
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(api, DispatcherConfig{Workers: 4, Buffer: 256}, logger)

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		d.Create(domain.Task{ID: id})
		for i := 0; i < 10; i++ {
			d.Update(domain.Task{ID: id, Title: string(rune('0' + i))})
		}
		d.Delete(id)
	}
	d.Close()

	for _, id := range ids {
		got := api.callsFor(id)
		if len(got) != 12 {
			t.Fatalf("task %s: expected 12 calls, got %d", id, len(got))
		}
		if got[0] != "create" || got[11] != "delete" {
			t.Fatalf("task %s: unexpected call order %v", id, got)
		}
		for i := 0; i < 10; i++ {
			if want := "update:" + string(rune('0'+i)); got[i+1] != want {
				t.Fatalf("task %s: call %d = %s, want %s", id, i+1, got[i+1], want)
			}
		}
	}
}

func TestDispatcherLogsFailedCalls(t *testing.T) {
	api := newRecordingAPI()
	api.failOn = "delete"
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(api, DispatcherConfig{Workers: 1, Buffer: 4}, logger)

	d.Delete("gone")
	d.Close()

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.ErrorLevel {
		t.Fatalf("expected error entry, got %#v", entry)
	}
	if len(api.callsFor("gone")) != 1 {
		t.Fatal("expected exactly one attempt, no retry")
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	api := newRecordingAPI()
	api.block = make(chan struct{})
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(api, DispatcherConfig{Workers: 1, Buffer: 1}, logger)

	// first job occupies the worker, second fills the buffer
	d.Update(domain.Task{ID: "x", Title: "1"})
	deadline := time.Now().Add(time.Second)
	for {
		d.mu.RLock()
		queued := len(d.queues[0])
		d.mu.RUnlock()
		if queued == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first job")
		}
		time.Sleep(time.Millisecond)
	}
	d.Update(domain.Task{ID: "x", Title: "2"})
	start := time.Now()
	d.Update(domain.Task{ID: "x", Title: "3"})
	if waited := time.Since(start); waited > 50*time.Millisecond {
		t.Fatalf("saturated handoff blocked for %v", waited)
	}

	dropped := false
	for _, e := range hook.AllEntries() {
		if e.Message == "remote call dropped" {
			dropped = true
		}
	}
	if !dropped {
		t.Fatal("expected the third call to be dropped")
	}

	close(api.block)
	d.Close()
	if got := api.callsFor("x"); len(got) != 2 {
		t.Fatalf("expected two delivered calls, got %v", got)
	}
}

func TestDispatcherAfterClose(t *testing.T) {
	api := newRecordingAPI()
	logger, hook := test.NewNullLogger()
	d := NewDispatcher(api, DispatcherConfig{}, logger)
	d.Close()
	d.Close()

	d.Create(domain.Task{ID: "late"})
	if entry := hook.LastEntry(); entry == nil || entry.Message != "remote call dropped" {
		t.Fatalf("expected dropped call after close, got %#v", entry)
	}
	if len(api.callsFor("late")) != 0 {
		t.Fatal("unexpected call after close")
	}
}

func TestDispatcherFetchIsSynchronous(t *testing.T) {
	api := newRecordingAPI()
	api.fetched = []domain.Task{{ID: "a"}}
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(api, DispatcherConfig{}, logger)
	defer d.Close()

	tasks, err := d.Fetch(context.Background())
	if err != nil || len(tasks) != 1 {
		t.Fatalf("unexpected fetch result: %v %v", tasks, err)
	}
}

func TestShardForIsStable(t *testing.T) {
	for _, id := range []string{"a", "task-42", "3f2a"} {
		first := shardFor(id, 8)
		if first < 0 || first >= 8 {
			t.Fatalf("shard out of range: %d", first)
		}
		if shardFor(id, 8) != first {
			t.Fatalf("shard for %s not stable", id)
		}
	}
	if shardFor("anything", 1) != 0 {
		t.Fatal("single worker must use shard 0")
	}
}
