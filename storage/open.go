package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Eduardo-Nightborn/TaskMaster/config"
	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// Backend is what every snapshot store implements.
type Backend interface {
	Load(ctx context.Context) (domain.Board, bool, error)
	Save(ctx context.Context, b domain.Board) error
}

// Open builds the backend named by cfg.Persistence and makes sure it is
// reachable: the Azure table is created, Redis is pinged and the data
// directory exists. The returned func releases the clients Open created.
func Open(ctx context.Context, cfg config.Config) (Backend, func(), error) {
	switch cfg.Persistence {
	case config.PersistRedis:
		rc := redis.NewClient(config.RedisOptions(cfg.RedisConnectionString))
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(rc, cfg.RedisKeyPrefix, cfg.RedisTTL), func() { _ = rc.Close() }, nil
	case config.PersistTable:
		ts, err := NewTableStore(cfg.StorageConnectionString, cfg.BoardTable)
		if err != nil {
			return nil, nil, err
		}
		if err := ts.EnsureTable(ctx); err != nil {
			return nil, nil, err
		}
		return ts, func() {}, nil
	case config.PersistNone:
		return Nop{}, func() {}, nil
	case config.PersistFile, "":
		fs, err := NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence)
	}
}
