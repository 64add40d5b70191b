package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// RedisStore keeps the snapshot under a single Redis string key.
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

// NewRedisStore stores the snapshot under prefix+Key. A zero ttl keeps the
// key forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("storage.NewRedisStore: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{redis: client, key: prefix + Key, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context) (domain.Board, bool, error) {
	data, err := r.redis.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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

func (r *RedisStore) Save(ctx context.Context, b domain.Board) error {
	data, err := EncodeSnapshot(b)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, r.key, data, r.ttl).Err()
}
