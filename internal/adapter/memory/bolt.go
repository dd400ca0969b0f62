package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"ragpipe/internal/domain"
)

var bucketRecords = []byte("memory_records")

// BoltStore persists memory records in bbolt. One record per chunk,
// last-writer-wins per key.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) a memory database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the record for a chunk.
func (s *BoltStore) Get(_ context.Context, chunkID string) (domain.MemoryRecord, bool, error) {
	var record domain.MemoryRecord
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get([]byte(chunkID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("corrupt memory record %s: %w", chunkID, err)
		}
		found = true
		return nil
	})
	return record, found, err
}

// Upsert writes the record for a chunk.
func (s *BoltStore) Upsert(_ context.Context, chunkID string, lastUsefulAt time.Time, utility float64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		record := domain.MemoryRecord{
			ChunkID:      chunkID,
			LastUsefulAt: &lastUsefulAt,
			Utility:      utility,
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRecords).Put([]byte(chunkID), data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
