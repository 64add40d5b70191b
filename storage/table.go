package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

const (
	boardPartition = "board"
	// Azure Tables caps a string property at 64 KiB.
	maxTableSnapshot = 64 * 1024
)

var ErrSnapshotTooLarge = errors.New("board snapshot exceeds table property limit")

type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
}

// TableStore keeps the snapshot in one Azure Table entity.
type TableStore struct {
	table tableClient
}

type snapshotEntity struct {
	aztables.Entity
	Snapshot string `json:"Snapshot"`
	Version  int    `json:"Version"`
}

// NewTableStore connects to tableName using an Azure Storage connection string.
func NewTableStore(connStr, tableName string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(tableName)}, nil
}

// EnsureTable creates the table unless it already exists.
func (s *TableStore) EnsureTable(ctx context.Context) error {
	_, err := s.table.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

func (s *TableStore) Load(ctx context.Context) (domain.Board, bool, error) {
	resp, err := s.table.GetEntity(ctx, boardPartition, Key, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return domain.Board{}, false, nil
		}
		return domain.Board{}, false, err
	}
	var ent snapshotEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Board{}, false, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	b, err := DecodeSnapshot([]byte(ent.Snapshot))
	if err != nil {
		return domain.Board{}, false, err
	}
	return b, true, nil
}

func (s *TableStore) Save(ctx context.Context, b domain.Board) error {
	data, err := EncodeSnapshot(b)
	if err != nil {
		return err
	}
	if len(data) > maxTableSnapshot {
		return fmt.Errorf("%w: %d bytes", ErrSnapshotTooLarge, len(data))
	}
	payload, err := sonic.Marshal(snapshotEntity{
		Entity:   aztables.Entity{PartitionKey: boardPartition, RowKey: Key},
		Snapshot: string(data),
		Version:  snapshotVersion,
	})
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}
