package synthesis

import (
	"context"
	"strings"
	"testing"

	"ragpipe/internal/domain"
)

func TestSynthesize_NoEvidence(t *testing.T) {
	s := NewExtractiveSynthesizer(3)

	answer, err := s.Synthesize(context.Background(), "missing topic", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text == "" {
		t.Error("expected an explanatory answer for empty evidence")
	}
	if !strings.Contains(answer.Text, "missing topic") {
		t.Errorf("expected the query echoed in the answer, got %q", answer.Text)
	}
	if answer.Citations == nil || len(answer.Citations) != 0 {
		t.Errorf("expected empty non-nil citations, got %v", answer.Citations)
	}
}

func TestSynthesize_CitesTopEvidence(t *testing.T) {
	s := NewExtractiveSynthesizer(2)

	candidates := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{ID: "chunk-1", DocID: "doc-1", Section: "1.1", Body: "The board approved the 2024 budget with minor amendments to travel spending."}, AdjustedScore: 0.9},
		{Chunk: domain.Chunk{ID: "chunk-2", DocID: "doc-1", Section: "1.2", Body: "Travel spending was capped at the previous year's level."}, AdjustedScore: 0.7},
		{Chunk: domain.Chunk{ID: "chunk-3", DocID: "doc-2", Body: "Unrelated item."}, AdjustedScore: 0.3},
	}

	answer, err := s.Synthesize(context.Background(), "what happened to the budget?", candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("expected maxEvidence citations, got %d", len(answer.Citations))
	}
	if answer.Citations[0].ChunkID != "chunk-1" || answer.Citations[1].ChunkID != "chunk-2" {
		t.Errorf("citations should follow candidate order, got %+v", answer.Citations)
	}
	if answer.Citations[0].Score != 0.9 {
		t.Errorf("expected citation score from final ranking, got %f", answer.Citations[0].Score)
	}
	if !strings.Contains(answer.Text, "[1]") || !strings.Contains(answer.Text, "[2]") {
		t.Errorf("expected numbered citation markers in %q", answer.Text)
	}
}

func TestCite_FallsBackToCombinedScore(t *testing.T) {
	c := domain.ScoredCandidate{
		Chunk:         domain.Chunk{ID: "chunk-1", DocID: "doc-1"},
		CombinedScore: 0.6,
	}
	citation := Cite(c)
	if citation.Score != 0.6 {
		t.Errorf("expected combined score fallback, got %f", citation.Score)
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", 400)
	if got := excerpt(long); len(got) > 280+len("…") {
		t.Errorf("excerpt not capped: %d chars", len(got))
	}

	twoSentences := "The first finding was significant and took a while to explain in full. The second was not."
	got := excerpt(twoSentences)
	if strings.Contains(got, "second") {
		t.Errorf("expected only the first sentence, got %q", got)
	}
}
