// Package transfer moves tasks in and out of the board as JSON files.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

var ErrInvalidFormat = errors.New("invalid file format")

// Importer is the store surface imports go through.
type Importer interface {
	AddTask(ctx context.Context, data domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.Patch) (domain.Task, error)
	Task(id string) (domain.Task, bool)
}

// Export renders tasks as an indented JSON array.
func Export(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return sonic.ConfigDefault.MarshalIndent(tasks, "", "  ")
}

// ExportFileName is the download name for an export taken at now.
func ExportFileName(now time.Time) string {
	return "taskmaster-export-" + now.UTC().Format(time.DateOnly) + ".json"
}

// Parse decodes an export file. Every record must carry the full task shape
// with a known status and priority, otherwise nothing is returned.
func Parse(data []byte) ([]domain.Task, error) {
	var raw []map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected an array of tasks", ErrInvalidFormat)
	}
	for i, rec := range raw {
		if err := validateRecord(rec); err != nil {
			return nil, fmt.Errorf("%w: task %d: %v", ErrInvalidFormat, i, err)
		}
	}

	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for i := range tasks {
		if tasks[i].Dependencies == nil {
			tasks[i].Dependencies = []string{}
		}
	}
	return tasks, nil
}

func validateRecord(rec map[string]any) error {
	if rec == nil {
		return errors.New("not an object")
	}
	for _, field := range []string{"id", "title", "description", "dueDate", "createdAt"} {
		if _, ok := rec[field].(string); !ok {
			return fmt.Errorf("%s must be a string", field)
		}
	}
	if _, ok := rec["order"].(float64); !ok {
		return errors.New("order must be a number")
	}
	status, _ := rec["status"].(string)
	if !domain.Status(status).Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	priority, _ := rec["priority"].(string)
	if !domain.Priority(priority).Valid() {
		return fmt.Errorf("unknown priority %q", priority)
	}
	switch deps := rec["dependencies"].(type) {
	case nil:
	case []any:
		for _, d := range deps {
			if _, ok := d.(string); !ok {
				return errors.New("dependencies must be strings")
			}
		}
	default:
		return errors.New("dependencies must be a list")
	}
	return nil
}

// Plan splits parsed tasks by whether their id already exists on the board.
type Plan struct {
	New        []domain.Task
	Duplicates []domain.Task
}

// Partition compares incoming ids against existing, keeping file order.
func Partition(existing, incoming []domain.Task) Plan {
	ids := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		ids[t.ID] = struct{}{}
	}
	plan := Plan{New: []domain.Task{}, Duplicates: []domain.Task{}}
	for _, t := range incoming {
		if _, ok := ids[t.ID]; ok {
			plan.Duplicates = append(plan.Duplicates, t)
		} else {
			plan.New = append(plan.New, t)
		}
	}
	return plan
}

// Import adds the planned tasks through the store, new ones first. Imported
// tasks get fresh ids, creation times and orders. Once every task is added,
// dependency ids that point into the file are rewritten to the fresh ids, ids
// of tasks already on the board are kept and the rest are dropped. It stops at
// the first failure and reports how many tasks were added before it.
func Import(ctx context.Context, store Importer, plan Plan, includeDuplicates bool) (int, error) {
	tasks := plan.New
	if includeDuplicates {
		tasks = append(append([]domain.Task{}, plan.New...), plan.Duplicates...)
	}

	ids := make(map[string]string, len(tasks))
	added := make([]domain.Task, 0, len(tasks))
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		created, err := store.AddTask(ctx, domain.NewTask{
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			DueDate:     t.DueDate,
		})
		if err != nil {
			return i, fmt.Errorf("import task %s: %w", t.ID, err)
		}
		// a duplicate imported twice keeps the first copy as link target
		if _, ok := ids[t.ID]; !ok {
			ids[t.ID] = created.ID
		}
		added = append(added, created)
	}

	for i, t := range tasks {
		deps := relink(t.Dependencies, ids, added[i].ID, store)
		if len(deps) == 0 {
			continue
		}
		if _, err := store.UpdateTask(ctx, added[i].ID, domain.Patch{Dependencies: &deps}); err != nil {
			return len(tasks), fmt.Errorf("link dependencies of %s: %w", t.ID, err)
		}
	}
	return len(tasks), nil
}

func relink(deps []string, ids map[string]string, self string, store Importer) []string {
	out := make([]string, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		id, ok := ids[dep]
		if !ok {
			if _, onBoard := store.Task(dep); !onBoard {
				continue
			}
			id = dep
		}
		if id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
