package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"ragpipe/internal/domain"
)

const recordPrefix = "memory:chunk:"

// RedisStore shares memory records across processes through Redis. Plain SET
// per chunk key gives the required last-writer-wins semantics.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed memory store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the record for a chunk.
func (s *RedisStore) Get(ctx context.Context, chunkID string) (domain.MemoryRecord, bool, error) {
	data, err := s.client.Get(ctx, recordPrefix+chunkID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MemoryRecord{}, false, nil
	}
	if err != nil {
		return domain.MemoryRecord{}, false, fmt.Errorf("failed to get memory record: %w", err)
	}

	var record domain.MemoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.MemoryRecord{}, false, fmt.Errorf("corrupt memory record %s: %w", chunkID, err)
	}
	return record, true, nil
}

// Upsert writes the record for a chunk.
func (s *RedisStore) Upsert(ctx context.Context, chunkID string, lastUsefulAt time.Time, utility float64) error {
	record := domain.MemoryRecord{
		ChunkID:      chunkID,
		LastUsefulAt: &lastUsefulAt,
		Utility:      utility,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal memory record: %w", err)
	}
	if err := s.client.Set(ctx, recordPrefix+chunkID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save memory record: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
