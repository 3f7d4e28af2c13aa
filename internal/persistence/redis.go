package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"coachmedia/internal/domain/upload"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultSnapshotKey is the fixed storage key for the queue snapshot.
const DefaultSnapshotKey = "coachmedia:upload_queue"

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client from the given configuration.
func NewRedisClient(cfg RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStore persists the queue snapshot as a JSON value under a single
// key. Snapshots have no TTL: the queue must survive arbitrary downtime.
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore creates a snapshot store. An empty key selects
// DefaultSnapshotKey.
func NewRedisStore(client *goredis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Save(ctx context.Context, records []upload.FileRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context) ([]upload.FileRecord, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err == goredis.Nil {
		return nil, nil // No snapshot
	}
	if err != nil {
		return nil, err
	}

	var records []upload.FileRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Ping checks if Redis is available
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
