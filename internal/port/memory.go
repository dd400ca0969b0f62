package port

import (
	"context"
	"time"

	"ragpipe/internal/domain"
)

// MemoryStore persists per-chunk utility signals across sessions. Concurrent
// reads and upserts are safe; updates are independent per chunk with
// last-writer-wins semantics.
type MemoryStore interface {
	// Get returns the record for a chunk, or ok=false if the chunk has never
	// been marked useful.
	Get(ctx context.Context, chunkID string) (domain.MemoryRecord, bool, error)

	// Upsert writes the record for a chunk.
	Upsert(ctx context.Context, chunkID string, lastUsefulAt time.Time, utility float64) error

	Close() error
}
