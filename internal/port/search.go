package port

import (
	"context"

	"ragpipe/internal/domain"
)

// SearchBackend ranks candidate chunks for a query. Implementations are
// selected by configuration, never by source patching.
type SearchBackend interface {
	// Search returns at most limit candidates ordered by combined score
	// descending, ties broken by chunk ID ascending. limit <= 0 returns an
	// empty slice; an empty index is not an error.
	Search(ctx context.Context, queryText string, weights domain.FacetWeights, limit int, alpha float64, filters *domain.HardFilters) ([]domain.ScoredCandidate, error)
}
