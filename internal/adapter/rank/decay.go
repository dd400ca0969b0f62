package rank

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

const weekHours = 7 * 24

// DecayScorer re-ranks candidates by blending their combined score with a
// recency-decayed utility signal looked up from the shared memory store.
// Chunks never seen before get neutral utility 1.0.
type DecayScorer struct {
	memory        port.MemoryStore
	halfLifeWeeks float64
	utilityWeight float64 // blend weight in [0,1]; 0 disables the utility signal
}

// NewDecayScorer creates a decay scorer. A utilityWeight outside [0,1] falls
// back to the 0.3 default.
func NewDecayScorer(memory port.MemoryStore, halfLifeWeeks, utilityWeight float64) *DecayScorer {
	if utilityWeight < 0 || utilityWeight > 1 {
		utilityWeight = 0.3
	}
	return &DecayScorer{
		memory:        memory,
		halfLifeWeeks: halfLifeWeeks,
		utilityWeight: utilityWeight,
	}
}

// Rescore computes each candidate's decayed utility as of now, derives the
// adjusted score from the unmodified combined score, and re-sorts with the
// same tie-break as the search stage. Idempotent for a fixed now.
func (s *DecayScorer) Rescore(ctx context.Context, candidates []domain.ScoredCandidate, now time.Time) ([]domain.ScoredCandidate, error) {
	for i := range candidates {
		utility := 1.0
		record, ok, err := s.memory.Get(ctx, candidates[i].Chunk.ID)
		if err != nil {
			return nil, fmt.Errorf("memory lookup for %s: %w", candidates[i].Chunk.ID, err)
		}
		if ok && record.LastUsefulAt != nil {
			weeksSince := now.Sub(*record.LastUsefulAt).Hours() / weekHours
			if weeksSince < 0 {
				weeksSince = 0
			}
			utility = Decay(record.Utility, weeksSince, s.halfLifeWeeks)
		}

		candidates[i].Utility = utility
		candidates[i].AdjustedScore = candidates[i].CombinedScore * s.blend(utility)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AdjustedScore != candidates[j].AdjustedScore {
			return candidates[i].AdjustedScore > candidates[j].AdjustedScore
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	return candidates, nil
}

// blend maps utility to a score multiplier: (1-w) + w*utility. Monotonically
// increasing in utility, 1.0 at full utility.
func (s *DecayScorer) blend(utility float64) float64 {
	return (1 - s.utilityWeight) + s.utilityWeight*utility
}

// MarkUseful resets the memory record of every cited chunk: a freshly useful
// chunk returns to full utility with last_useful_at = now.
func (s *DecayScorer) MarkUseful(ctx context.Context, chunkIDs []string, now time.Time) error {
	for _, id := range chunkIDs {
		if err := s.memory.Upsert(ctx, id, now, 1.0); err != nil {
			return fmt.Errorf("memory upsert for %s: %w", id, err)
		}
	}
	return nil
}

// Decay applies exponential half-life decay to a utility value. A
// non-positive half-life disables decay and returns the previous value
// unchanged. Utility erodes toward zero but never goes negative.
func Decay(previous, weeksSince, halfLifeWeeks float64) float64 {
	if halfLifeWeeks <= 0 {
		return previous
	}
	return previous * math.Pow(0.5, weeksSince/halfLifeWeeks)
}
