package port

import (
	"context"

	"ragpipe/internal/domain"
)

// VectorIndex is the read-only retrieval surface of the index collaborator.
// Safe for unlimited concurrent readers.
type VectorIndex interface {
	// Query finds the k nearest chunks to the query vector. A non-nil filters
	// excludes non-matching chunks before similarity scoring. k <= 0 returns
	// an empty result.
	Query(ctx context.Context, vector []float32, k int, filters *domain.HardFilters) ([]IndexHit, error)

	// GetChunkMetadata returns the stored chunk for an ID.
	GetChunkMetadata(ctx context.Context, chunkID string) (domain.Chunk, error)

	// GetDocument returns the stored document for an ID.
	GetDocument(ctx context.Context, docID string) (domain.Document, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)
}

// IndexHit is one index match with its stored metadata and embedding.
type IndexHit struct {
	Chunk     domain.Chunk
	Document  domain.Document
	Embedding []float32
	Score     float64 // cosine similarity to the query vector
}

// IndexWriter is the ingestion-side surface used by loading tooling.
type IndexWriter interface {
	UpsertDocument(ctx context.Context, doc domain.Document) error
	Upsert(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) error
	Delete(ctx context.Context, chunkIDs []string) error
}
