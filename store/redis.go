package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tourloop/types"
)

const projectKeyPrefix = "tour:project:"

// RedisConfig configures the Redis-backed project store.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	// TTL bounds how long an untouched project document lives. Zero keeps
	// documents forever.
	TTL time.Duration
}

// RedisStore persists project documents as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store and verifies connectivity.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// NewRedisStoreFromEnv creates a store using environment variables:
// REDIS_ADDR, REDIS_PASS, REDIS_DB (optional), PROJECT_TTL_SECONDS (optional).
func NewRedisStoreFromEnv(ctx context.Context) (*RedisStore, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	var ttl time.Duration
	if v := os.Getenv("PROJECT_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	return NewRedisStore(ctx, RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		DB:       db,
		TTL:      ttl,
	})
}

// LoadProject fetches a project document by ID.
func (s *RedisStore) LoadProject(ctx context.Context, id string) (*types.Project, error) {
	raw, err := s.client.Get(ctx, projectKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}

	var project types.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	return &project, nil
}

// SaveProject writes the whole project document back.
func (s *RedisStore) SaveProject(ctx context.Context, project *types.Project) error {
	project.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", project.ID, err)
	}
	if err := s.client.Set(ctx, projectKeyPrefix+project.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save project %s: %w", project.ID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
