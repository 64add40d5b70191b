package board

import (
	"context"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// Remote keeps the remote task service informed of store mutations.
//
// Create, Update and Delete are fire-and-forget: implementations must not
// block on the network and report failures through their own logging. Fetch
// is the only call the store waits on.
type Remote interface {
	Fetch(ctx context.Context) ([]domain.Task, error)
	Create(task domain.Task)
	Update(task domain.Task)
	Delete(id string)
}

// Persister stores and restores board snapshots.
type Persister interface {
	// Load returns the stored board. ok is false when nothing has been saved yet.
	Load(ctx context.Context) (b domain.Board, ok bool, err error)
	Save(ctx context.Context, b domain.Board) error
}
