// Command storage-init prepares the configured snapshot backend before the
// board service starts.
package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/config"
	"github.com/Eduardo-Nightborn/TaskMaster/domain"
	"github.com/Eduardo-Nightborn/TaskMaster/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("backend", cfg.Persistence).Info("storage init starting")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backend, closeFn, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("prepare %s: %v", cfg.Persistence, err)
	}
	defer closeFn()

	reset, _ := strconv.ParseBool(os.Getenv("RESET_SNAPSHOT"))
	if err := seed(ctx, backend, reset); err != nil {
		log.Fatalf("seed snapshot: %v", err)
	}
	log.Info("storage init complete")
}

// seed writes an empty board when there is no snapshot or the stored one is
// corrupt, or always when reset is set. Any other load failure is returned
// and the stored snapshot is left alone.
func seed(ctx context.Context, backend storage.Backend, reset bool) error {
	if !reset {
		_, ok, err := backend.Load(ctx)
		switch {
		case err == nil && ok:
			log.Debug("existing snapshot kept")
			return nil
		case errors.Is(err, storage.ErrCorruptSnapshot):
			log.WithError(err).Warn("existing snapshot corrupt, replacing it")
		case err != nil:
			return err
		}
	}
	return backend.Save(ctx, domain.NewBoard())
}
