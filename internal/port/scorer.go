package port

import (
	"context"
	"time"

	"ragpipe/internal/domain"
)

// UtilityScorer re-ranks candidates by their recency-decayed utility and
// records which chunks turned out to be useful evidence.
type UtilityScorer interface {
	// Rescore computes each candidate's utility as of now, adjusts the
	// ranking score, and re-sorts. Idempotent for a fixed now.
	Rescore(ctx context.Context, candidates []domain.ScoredCandidate, now time.Time) ([]domain.ScoredCandidate, error)

	// MarkUseful resets the memory record of every cited chunk to full
	// utility at now.
	MarkUseful(ctx context.Context, chunkIDs []string, now time.Time) error
}
