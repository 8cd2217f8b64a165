package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/musicgen/internal/model"
)

func sampleRecord() *model.TaskRecord {
	return &model.TaskRecord{
		TaskID:      uuid.New().String(),
		Feature:     model.FeatureWav,
		Status:      "SUCCESS",
		Result:      json.RawMessage(`{"wavUrl":"http://x/a.wav"}`),
		Attempts:    4,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		CompletedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestNopStore(t *testing.T) {
	var s TaskStore = Nop{}
	if err := s.Save(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := s.Load(context.Background(), "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	rec := sampleRecord()

	if _, err := s.Load(context.Background(), rec.TaskID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}
	if err := s.Save(context.Background(), rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := s.Load(context.Background(), rec.TaskID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Status != "SUCCESS" || got.Attempts != 4 || string(got.Result) != string(rec.Result) {
		t.Errorf("unexpected record %+v", got)
	}
}

// redisClient connects to a local Redis, skipping the test when none runs.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := redisClient(t)
	s := NewRedisStore(client, time.Minute)
	ctx := context.Background()
	rec := sampleRecord()
	t.Cleanup(func() { client.Del(ctx, key(rec.TaskID)) })

	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := s.Load(ctx, rec.TaskID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Feature != model.FeatureWav || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("unexpected record %+v", got)
	}

	ttl := client.TTL(ctx, key(rec.TaskID)).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %s", ttl)
	}

	if _, err := s.Load(ctx, "missing-"+rec.TaskID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreRejectsEmptyID(t *testing.T) {
	s := NewRedisStore(nil, 0)
	if err := s.Save(context.Background(), &model.TaskRecord{}); err == nil {
		t.Error("expected error for record without task id")
	}
	if s.ttl != DefaultTTL {
		t.Errorf("expected default ttl, got %s", s.ttl)
	}
}
