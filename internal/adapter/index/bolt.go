package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.etcd.io/bbolt"
	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

var (
	bucketDocs    = []byte("docs")
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
)

// BoltIndex is a bbolt-backed vector index with chunk and document metadata.
// Vectors are cached in memory for brute-force cosine search; fine for
// corpora up to the tens of thousands of chunks this serves.
type BoltIndex struct {
	db        *bbolt.DB
	dimension int

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewBoltIndex opens (or creates) an index database at path.
func NewBoltIndex(path string, dimension int) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketChunks, bucketVectors} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	idx := &BoltIndex{
		db:        db,
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
	if err := idx.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return idx, nil
}

func (s *BoltIndex) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var vec []float32
			if err := json.Unmarshal(v, &vec); err != nil {
				return nil // skip corrupted entries
			}
			s.vectors[string(k)] = vec
			return nil
		})
	})
}

// UpsertDocument stores document metadata.
func (s *BoltIndex) UpsertDocument(_ context.Context, doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

// Upsert stores chunks with their embeddings. Both slices must align.
func (s *BoltIndex) Upsert(_ context.Context, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		vectorBucket := tx.Bucket(bucketVectors)

		for i, chunk := range chunks {
			if len(embeddings[i]) != s.dimension {
				return fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", chunk.ID, s.dimension, len(embeddings[i]))
			}

			chunkData, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.ID), chunkData); err != nil {
				return err
			}

			vecData, err := json.Marshal(embeddings[i])
			if err != nil {
				return err
			}
			if err := vectorBucket.Put([]byte(chunk.ID), vecData); err != nil {
				return err
			}
			s.vectors[chunk.ID] = embeddings[i]
		}
		return nil
	})
}

// Delete removes chunks and their vectors.
func (s *BoltIndex) Delete(_ context.Context, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		vectorBucket := tx.Bucket(bucketVectors)
		for _, id := range chunkIDs {
			if err := chunkBucket.Delete([]byte(id)); err != nil {
				return err
			}
			if err := vectorBucket.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return nil
	})
}

// Query performs brute-force cosine search over the cached vectors, applying
// hard filters before scoring.
func (s *BoltIndex) Query(ctx context.Context, vector []float32, k int, filters *domain.HardFilters) ([]port.IndexHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.vectors))
	for id := range s.vectors {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	if len(ids) == 0 {
		return nil, nil
	}

	var hits []port.IndexHit
	err := s.db.View(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		docBucket := tx.Bucket(bucketDocs)
		docCache := make(map[string]domain.Document)

		s.mu.RLock()
		defer s.mu.RUnlock()

		for _, id := range ids {
			chunkData := chunkBucket.Get([]byte(id))
			if chunkData == nil {
				continue
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(chunkData, &chunk); err != nil {
				continue
			}

			doc, ok := docCache[chunk.DocID]
			if !ok {
				if docData := docBucket.Get([]byte(chunk.DocID)); docData != nil {
					if err := json.Unmarshal(docData, &doc); err != nil {
						continue // skip chunks whose document record is corrupt
					}
				}
				docCache[chunk.DocID] = doc
			}

			if !matchesFilters(chunk, doc, filters) {
				continue
			}

			vec := s.vectors[id]
			hits = append(hits, port.IndexHit{
				Chunk:     chunk,
				Document:  doc,
				Embedding: vec,
				Score:     cosineSimilarity(vector, vec),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// GetChunkMetadata returns the stored chunk for an ID.
func (s *BoltIndex) GetChunkMetadata(_ context.Context, chunkID string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(chunkID))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", chunkID)
		}
		return json.Unmarshal(data, &chunk)
	})
	return chunk, err
}

// GetDocument returns the stored document for an ID.
func (s *BoltIndex) GetDocument(_ context.Context, docID string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("document not found: %s", docID)
		}
		return json.Unmarshal(data, &doc)
	})
	return doc, err
}

// Count returns the number of indexed chunks.
func (s *BoltIndex) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

func matchesFilters(chunk domain.Chunk, doc domain.Document, filters *domain.HardFilters) bool {
	if filters == nil {
		return true
	}
	if filters.Jurisdiction != "" && !strings.EqualFold(filters.Jurisdiction, doc.Jurisdiction) {
		return false
	}
	if filters.DocType != "" && !strings.EqualFold(filters.DocType, doc.DocType) {
		return false
	}
	if filters.From != nil && chunk.ValidTo != nil && chunk.ValidTo.Before(*filters.From) {
		return false
	}
	if filters.To != nil && chunk.ValidFrom != nil && chunk.ValidFrom.After(*filters.To) {
		return false
	}
	return true
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
