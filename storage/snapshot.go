// Package storage persists board snapshots so the board survives restarts.
package storage

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// Key names the persisted snapshot in every backend.
const Key = "taskmaster-storage"

// snapshotVersion is written into every document. Documents with a newer
// version are rejected.
const snapshotVersion = 0

var (
	ErrCorruptSnapshot = errors.New("corrupt board snapshot")
	// ErrUnsupportedVersion marks a snapshot written by a newer release. It is
	// valid data and must not be overwritten.
	ErrUnsupportedVersion = errors.New("unsupported board snapshot version")
)

type snapshotDocument struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

type snapshotState struct {
	Columns     domain.Columns  `json:"columns"`
	ColumnOrder []domain.Status `json:"columnOrder"`
}

// EncodeSnapshot renders b as a versioned snapshot document.
func EncodeSnapshot(b domain.Board) ([]byte, error) {
	return sonic.Marshal(snapshotDocument{
		State:   snapshotState{Columns: b.Columns, ColumnOrder: b.ColumnOrder},
		Version: snapshotVersion,
	})
}

// DecodeSnapshot parses a snapshot document and normalizes the board it holds.
func DecodeSnapshot(data []byte) (domain.Board, error) {
	var doc snapshotDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return domain.Board{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if doc.Version > snapshotVersion {
		return domain.Board{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	b := domain.Board{Columns: doc.State.Columns, ColumnOrder: doc.State.ColumnOrder}
	b.Normalize()
	return b, nil
}
