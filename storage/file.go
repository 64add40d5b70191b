package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// FileStore keeps the snapshot in a JSON file inside a data directory.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates dataDir if needed and stores the snapshot as
// <dataDir>/taskmaster-storage.json.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dataDir, Key+".json")}, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (domain.Board, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Board{}, false, nil
		}
		return domain.Board{}, false, err
	}
	b, err := DecodeSnapshot(data)
	if err != nil {
		return domain.Board{}, false, err
	}
	return b, true, nil
}

// Save writes to a temporary file and renames it over the snapshot so a
// crash never leaves a half-written file behind.
func (f *FileStore) Save(ctx context.Context, b domain.Board) error {
	data, err := EncodeSnapshot(b)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), Key+"-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
