package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

type fakeTable struct {
	entities  map[string][]byte
	createErr error
	upserts   int
	lastMode  aztables.UpdateMode
}

func newFakeTable() *fakeTable {
	return &fakeTable{entities: map[string][]byte{}}
}

func (f *fakeTable) CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error) {
	return aztables.CreateTableResponse{}, f.createErr
}

func (f *fakeTable) GetEntity(ctx context.Context, pk, rk string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	v, ok := f.entities[pk+"/"+rk]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}
	}
	return aztables.GetEntityResponse{Value: v}, nil
}

func (f *fakeTable) UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	var ent snapshotEntity
	if err := sonic.Unmarshal(entity, &ent); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	f.upserts++
	if options != nil {
		f.lastMode = options.UpdateMode
	}
	f.entities[ent.PartitionKey+"/"+ent.RowKey] = entity
	return aztables.UpsertEntityResponse{}, nil
}

func TestTableStoreSaveLoad(t *testing.T) {
	table := newFakeTable()
	store := &TableStore{table: table}
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, sampleBoard()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := table.entities["board/taskmaster-storage"]; !ok {
		t.Fatalf("expected entity under board/taskmaster-storage, got %v", table.entities)
	}
	if table.lastMode != aztables.UpdateModeReplace {
		t.Fatalf("expected replace mode, got %v", table.lastMode)
	}

	b, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(b.Tasks()) != 2 {
		t.Fatalf("unexpected tasks: %#v", b.Tasks())
	}
}

func TestTableStoreRejectsOversizedSnapshot(t *testing.T) {
	table := newFakeTable()
	store := &TableStore{table: table}
	b := domain.NewBoard()
	b.Columns.Todo.Tasks = []domain.Task{{ID: "big", Description: strings.Repeat("x", maxTableSnapshot)}}

	if err := store.Save(context.Background(), b); !errors.Is(err, ErrSnapshotTooLarge) {
		t.Fatalf("expected ErrSnapshotTooLarge, got %v", err)
	}
	if table.upserts != 0 {
		t.Fatal("oversized snapshot must not be written")
	}
}

func TestTableStoreLoadPropagatesErrors(t *testing.T) {
	table := newFakeTable()
	table.entities["board/taskmaster-storage"] = []byte(`{"PartitionKey":"board","RowKey":"taskmaster-storage","Snapshot":"nope"}`)
	store := &TableStore{table: table}

	if _, _, err := store.Load(context.Background()); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
	}
}

func TestEnsureTable(t *testing.T) {
	table := newFakeTable()
	store := &TableStore{table: table}

	table.createErr = &azcore.ResponseError{StatusCode: 409, ErrorCode: string(aztables.TableAlreadyExists)}
	if err := store.EnsureTable(context.Background()); err != nil {
		t.Fatalf("existing table should be accepted: %v", err)
	}

	table.createErr = &azcore.ResponseError{StatusCode: 403, ErrorCode: "AuthorizationFailure"}
	if err := store.EnsureTable(context.Background()); err == nil {
		t.Fatal("expected other errors to surface")
	}
}
