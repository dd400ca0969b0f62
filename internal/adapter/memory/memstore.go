package memory

import (
	"context"
	"sync"
	"time"

	"ragpipe/internal/domain"
)

// MemStore is an in-memory memory store for tests and single-process runs.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]domain.MemoryRecord
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]domain.MemoryRecord)}
}

func (s *MemStore) Get(_ context.Context, chunkID string) (domain.MemoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[chunkID]
	return record, ok, nil
}

func (s *MemStore) Upsert(_ context.Context, chunkID string, lastUsefulAt time.Time, utility float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := lastUsefulAt
	s.records[chunkID] = domain.MemoryRecord{
		ChunkID:      chunkID,
		LastUsefulAt: &at,
		Utility:      utility,
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
