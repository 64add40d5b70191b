package remote

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// TaskAPI is the remote task resource. *Client implements it.
type TaskAPI interface {
	Fetch(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	Update(ctx context.Context, task domain.Task) (domain.Task, error)
	Delete(ctx context.Context, id string) (domain.Task, error)
}

var errDispatcherSaturated = errors.New("remote dispatcher is saturated")

type callKind int

const (
	callCreate callKind = iota
	callUpdate
	callDelete
)

func (k callKind) String() string {
	switch k {
	case callCreate:
		return "create"
	case callUpdate:
		return "update"
	default:
		return "delete"
	}
}

type callJob struct {
	kind callKind
	id   string
	task domain.Task
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers     int
	Buffer      int
	CallTimeout time.Duration
}

// Dispatcher sends create, update and delete calls on background workers so
// store mutations never wait for the network. Calls for one task id always
// run on the same worker, in the order they were queued. The store calls it
// while holding its lock, so handing a call off never blocks: a full queue
// drops the call. Failed calls are logged and not retried.
type Dispatcher struct {
	api    TaskAPI
	logger *log.Logger
	cfg    DispatcherConfig

	mu      sync.RWMutex
	closed  bool
	queues  []chan callJob
	workers sync.WaitGroup
}

func NewDispatcher(api TaskAPI, cfg DispatcherConfig, logger *log.Logger) *Dispatcher {
	if api == nil {
		panic("remote.NewDispatcher: api is nil")
	}
	if logger == nil {
		panic("remote.NewDispatcher: logger is nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		api:    api,
		logger: logger,
		cfg:    cfg,
		queues: make([]chan callJob, cfg.Workers),
	}
	for i := range d.queues {
		d.queues[i] = make(chan callJob, cfg.Buffer)
		d.workers.Add(1)
		go d.worker(i, d.queues[i])
	}
	logger.Infof("remote dispatcher started, workers: %d, buffer: %d, timeout: %v", cfg.Workers, cfg.Buffer, cfg.CallTimeout)
	return d
}

// Fetch is passed straight through; the caller waits for it.
func (d *Dispatcher) Fetch(ctx context.Context) ([]domain.Task, error) {
	return d.api.Fetch(ctx)
}

func (d *Dispatcher) Create(task domain.Task) {
	d.enqueue(callJob{kind: callCreate, id: task.ID, task: task})
}

func (d *Dispatcher) Update(task domain.Task) {
	d.enqueue(callJob{kind: callUpdate, id: task.ID, task: task})
}

func (d *Dispatcher) Delete(id string) {
	d.enqueue(callJob{kind: callDelete, id: id})
}

// Close stops accepting calls, runs everything already queued and waits for
// the workers to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) enqueue(job callJob) {
	if err := d.handoff(job); err != nil {
		d.logger.WithError(err).WithFields(log.Fields{"op": job.kind.String(), "task": job.id}).Error("remote call dropped")
	}
}

func (d *Dispatcher) handoff(job callJob) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.New("remote dispatcher closed")
	}
	q := d.queues[shardFor(job.id, len(d.queues))]

	select {
	case q <- job:
		return nil
	default:
		return errDispatcherSaturated
	}
}

func (d *Dispatcher) worker(id int, jobs <-chan callJob) {
	defer d.workers.Done()
	for j := range jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.CallTimeout)
		var err error
		switch j.kind {
		case callCreate:
			_, err = d.api.Create(ctx, j.task)
		case callUpdate:
			_, err = d.api.Update(ctx, j.task)
		case callDelete:
			_, err = d.api.Delete(ctx, j.id)
		}
		cancel()

		if err != nil {
			d.logger.WithError(err).Errorf("remote %s failed, task: %s, worker: %d", j.kind, j.id, id)
		}
	}
}

func shardFor(id string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}
