package synthesis

import (
	"context"
	"fmt"
	"strings"

	"ragpipe/internal/domain"
)

// ExtractiveSynthesizer composes an answer directly from the top evidence
// without a language model: leading sentences of the best chunks, each backed
// by a citation. The default backend for local runs and tests.
type ExtractiveSynthesizer struct {
	maxEvidence int
}

// NewExtractiveSynthesizer creates a synthesizer using at most maxEvidence
// chunks per answer (defaults to 3 when non-positive).
func NewExtractiveSynthesizer(maxEvidence int) *ExtractiveSynthesizer {
	if maxEvidence <= 0 {
		maxEvidence = 3
	}
	return &ExtractiveSynthesizer{maxEvidence: maxEvidence}
}

func (s *ExtractiveSynthesizer) Synthesize(_ context.Context, queryText string, candidates []domain.ScoredCandidate) (domain.Answer, error) {
	if len(candidates) == 0 {
		return domain.Answer{
			Text:      fmt.Sprintf("No evidence found for %q in the indexed corpus.", queryText),
			Citations: []domain.Citation{},
		}, nil
	}

	top := candidates
	if len(top) > s.maxEvidence {
		top = top[:s.maxEvidence]
	}

	var b strings.Builder
	citations := make([]domain.Citation, 0, len(top))
	for i, c := range top {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(excerpt(c.Chunk.Body))
		b.WriteString(fmt.Sprintf(" [%d]", i+1))
		citations = append(citations, Cite(c))
	}

	return domain.Answer{Text: b.String(), Citations: citations}, nil
}

// Cite builds the citation for a candidate using its final ranking score.
func Cite(c domain.ScoredCandidate) domain.Citation {
	score := c.AdjustedScore
	if score == 0 {
		score = c.CombinedScore
	}
	return domain.Citation{
		DocID:   c.Chunk.DocID,
		Section: c.Chunk.Section,
		ChunkID: c.Chunk.ID,
		Score:   score,
	}
}

// excerpt returns the first sentence-ish span of a chunk body, capped at 280
// characters.
func excerpt(body string) string {
	body = strings.TrimSpace(body)
	if idx := strings.IndexAny(body, ".!?\n"); idx > 40 {
		body = body[:idx+1]
	}
	if len(body) > 280 {
		body = body[:280] + "…"
	}
	return body
}
