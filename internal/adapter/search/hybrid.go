package search

import (
	"context"
	"fmt"
	"sort"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// HybridEngine blends semantic similarity with facet-weighted metadata
// agreement into a single ranking. Facets bias the ranking but never exclude
// a chunk; exclusion happens only through explicit hard filters, which the
// index applies before scoring.
type HybridEngine struct {
	embedder  port.Embedder
	index     port.VectorIndex
	extractor port.FacetExtractor
	poolScale int // candidate pool multiplier before final cut
}

// NewHybridEngine creates a hybrid search engine.
func NewHybridEngine(embedder port.Embedder, index port.VectorIndex, extractor port.FacetExtractor) *HybridEngine {
	return &HybridEngine{
		embedder:  embedder,
		index:     index,
		extractor: extractor,
		poolScale: 3,
	}
}

// Search returns at most limit candidates ordered by combined score
// descending, ties broken by chunk ID ascending.
func (e *HybridEngine) Search(ctx context.Context, queryText string, weights domain.FacetWeights, limit int, alpha float64, filters *domain.HardFilters) ([]domain.ScoredCandidate, error) {
	if limit <= 0 {
		return []domain.ScoredCandidate{}, nil
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha out of range: %v", alpha)
	}

	vectors, err := e.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, domain.Transient("embed", err)
	}
	if len(vectors) == 0 {
		return []domain.ScoredCandidate{}, nil
	}
	queryVector := vectors[0]

	// Over-fetch so facet agreement can still promote semantically weaker
	// chunks into the final cut.
	poolK := limit * e.poolScale
	if poolK < 20 {
		poolK = 20
	}
	hits, err := e.index.Query(ctx, queryVector, poolK, filters)
	if err != nil {
		return nil, domain.Transient("index query", err)
	}
	if len(hits) == 0 {
		return []domain.ScoredCandidate{}, nil
	}

	queryFacets := e.extractor.Extract(queryText)

	candidates := make([]domain.ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		semantic := hit.Score
		facet := facetAgreement(weights, queryFacets, hit.Chunk, hit.Document)
		candidates = append(candidates, domain.ScoredCandidate{
			Chunk:         hit.Chunk,
			SemanticScore: semantic,
			FacetScore:    facet,
			CombinedScore: alpha*semantic + (1-alpha)*facet,
			Utility:       1.0,
		})
	}

	SortCandidates(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// SortCandidates orders by combined score descending with chunk ID ascending
// as the deterministic tie-break. Shared with the decay scorer so both stages
// rank identically.
func SortCandidates(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CombinedScore != candidates[j].CombinedScore {
			return candidates[i].CombinedScore > candidates[j].CombinedScore
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})
}
