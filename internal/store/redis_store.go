package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicgen/internal/model"
)

// DefaultTTL is how long a record is kept.
const DefaultTTL = 7 * 24 * time.Hour

// RedisStore keeps task records in Redis under task:<id>.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a store. A non-positive ttl uses DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{redis: redisClient, ttl: ttl}
}

// Save stores rec, replacing any previous record of the same task.
func (s *RedisStore) Save(ctx context.Context, rec *model.TaskRecord) error {
	if rec == nil || rec.TaskID == "" {
		return fmt.Errorf("failed to save record: missing task id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.redis.Set(ctx, key(rec.TaskID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Load returns the record of taskID or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	data, err := s.redis.Get(ctx, key(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var rec model.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

func key(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}
