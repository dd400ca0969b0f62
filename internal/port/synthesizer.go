package port

import (
	"context"

	"ragpipe/internal/domain"
)

// Synthesizer turns ranked evidence into a prose answer with citations.
// An empty candidate set must still produce an explanatory answer with an
// empty citation list.
type Synthesizer interface {
	Synthesize(ctx context.Context, queryText string, candidates []domain.ScoredCandidate) (domain.Answer, error)
}
