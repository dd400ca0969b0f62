package planner

import (
	"testing"
	"time"

	"ragpipe/internal/domain"
)

func TestPlanNeutralDefault(t *testing.T) {
	p := NewLexicalPlanner()

	weights := p.Plan("tell me something")
	for facet, w := range weights {
		if w != domain.NeutralWeight {
			t.Errorf("expected neutral weight for %s, got %f", facet, w)
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	p := NewLexicalPlanner()
	query := "What did Alice Johnson decide in the March 2024 board minutes?"

	first := p.Plan(query)
	for i := 0; i < 10; i++ {
		again := p.Plan(query)
		for facet, w := range first {
			if again[facet] != w {
				t.Fatalf("non-deterministic weight for %s: %f vs %f", facet, w, again[facet])
			}
		}
	}
}

func TestPlanBoostsSignalledFacets(t *testing.T) {
	p := NewLexicalPlanner()

	weights := p.Plan("What did Acme Corp report in 2024?")
	if weights[domain.FacetEntity] <= domain.NeutralWeight {
		t.Errorf("expected entity weight above neutral, got %f", weights[domain.FacetEntity])
	}
	if weights[domain.FacetDate] <= domain.NeutralWeight {
		t.Errorf("expected date weight above neutral, got %f", weights[domain.FacetDate])
	}
	if weights[domain.FacetDocType] <= domain.NeutralWeight {
		t.Errorf("expected doc type weight above neutral, got %f", weights[domain.FacetDocType])
	}
}

func TestPlanWeightsInRange(t *testing.T) {
	p := NewLexicalPlanner()
	queries := []string{
		"",
		"when when when date date 2020 2021 2022 2023 2024 January February",
		`"Project Tiger" minutes from the US federal meeting on 2024-03-05`,
	}

	for _, q := range queries {
		for facet, w := range p.Plan(q) {
			if w < 0 || w > 1 {
				t.Errorf("weight out of range for %s on %q: %f", facet, q, w)
			}
		}
	}
}

func TestExtractDateRange(t *testing.T) {
	p := NewLexicalPlanner()

	facets := p.Extract("what was decided on 2024-03-05?")
	if facets.From == nil || facets.To == nil {
		t.Fatal("expected date range for ISO date")
	}
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !facets.From.Equal(want) {
		t.Errorf("expected from %v, got %v", want, facets.From)
	}
	if !facets.To.Equal(want.AddDate(0, 0, 1)) {
		t.Errorf("expected one-day range, got to %v", facets.To)
	}

	facets = p.Extract("decisions from March 2024")
	if facets.From == nil || !facets.From.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected month range start, got %v", facets.From)
	}

	facets = p.Extract("everything from 2023")
	if facets.From == nil || facets.From.Year() != 2023 || facets.To.Year() != 2024 {
		t.Errorf("expected year range, got %v..%v", facets.From, facets.To)
	}

	facets = p.Extract("no dates here")
	if facets.From != nil || facets.To != nil {
		t.Error("expected no date range")
	}
}

func TestExtractEntities(t *testing.T) {
	p := NewLexicalPlanner()

	facets := p.Extract(`What did Acme Corp and "project falcon" agree with Bob Smith?`)

	want := map[string]bool{"project falcon": true, "acme corp": true, "bob smith": true}
	for _, e := range facets.Entities {
		delete(want, normalize(e))
	}
	if len(want) != 0 {
		t.Errorf("missing entities: %v (got %v)", want, facets.Entities)
	}
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func TestExtractEntities_LeadingEntity(t *testing.T) {
	p := NewLexicalPlanner()

	facets := p.Extract("Acme Corp earnings for 2024?")
	found := false
	for _, e := range facets.Entities {
		if normalize(e) == "acme corp" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a multi-word name at the start of the query to be kept, got %v", facets.Entities)
	}

	// A lone capitalized first word is sentence case, not a name.
	facets = p.Extract("Meeting notes please")
	for _, e := range facets.Entities {
		if normalize(e) == "meeting" {
			t.Errorf("sentence-case first word must not become an entity: %v", facets.Entities)
		}
	}

	// Leading question words are dropped before the check.
	facets = p.Extract("What Acme Corp decided")
	found = false
	for _, e := range facets.Entities {
		if normalize(e) == "acme corp" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected name after a leading question word, got %v", facets.Entities)
	}
}

func TestExtractJurisdictionAndDocType(t *testing.T) {
	p := NewLexicalPlanner()

	facets := p.Extract("show me the EU contract terms")
	if facets.Jurisdiction != "EU" {
		t.Errorf("expected EU jurisdiction, got %q", facets.Jurisdiction)
	}
	if facets.DocType != "contract" {
		t.Errorf("expected contract doc type, got %q", facets.DocType)
	}
}
