package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/Eduardo-Nightborn/TaskMaster/api"
	"github.com/Eduardo-Nightborn/TaskMaster/board"
	"github.com/Eduardo-Nightborn/TaskMaster/config"
	"github.com/Eduardo-Nightborn/TaskMaster/remote"
	"github.com/Eduardo-Nightborn/TaskMaster/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persister, closePersister, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer closePersister()

	client := remote.NewClient(cfg.RemoteURL, &http.Client{Timeout: cfg.RemoteTimeout}, logger)
	dispatcher := remote.NewDispatcher(client, remote.DispatcherConfig{
		Workers:     cfg.SyncWorkers,
		Buffer:      cfg.SyncBuffer,
		CallTimeout: cfg.RemoteTimeout,
	}, logger)
	defer dispatcher.Close()

	store := board.NewStore(dispatcher, persister, logger)
	if err := restore(ctx, store, logger); err != nil {
		logger.Fatalf("restore board: %v", err)
	}
	if cfg.FetchOnStart {
		if err := store.FetchTasks(ctx); err != nil {
			logger.WithError(err).Warn("initial fetch failed, serving persisted board")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderContentEncoding, echo.HeaderAccept},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	}))
	api.Register(e, store, api.Options{MaxBodyBytes: cfg.MaxBodyBytes, KeepAlive: cfg.StreamKeepAlive}, logger)

	go func() {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	logger.Info("board service stopped")
}

// restore loads the persisted board. A corrupt snapshot is logged and the
// board starts empty; any other failure is returned so the service does not
// overwrite a snapshot it could not read.
func restore(ctx context.Context, store *board.Store, logger *log.Logger) error {
	err := store.Load(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrCorruptSnapshot) {
		logger.WithError(err).Warn("board snapshot corrupt, starting empty")
		return nil
	}
	return err
}
