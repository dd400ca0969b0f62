package domain

import "time"

// Document is an ingested source document. Documents are immutable once
// ingested and owned by the ingestion pipeline; the query path only reads them.
type Document struct {
	ID           string     `json:"doc_id"`
	Title        string     `json:"title"`
	Entities     []string   `json:"entities,omitempty"`
	Topics       []string   `json:"topics,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
	DocType      string     `json:"doc_type,omitempty"`
	Lang         string     `json:"lang,omitempty"`
}

// Chunk is a retrievable passage of a document. A chunk belongs to exactly
// one document; chunk IDs are globally unique.
type Chunk struct {
	ID        string     `json:"chunk_id"`
	DocID     string     `json:"doc_id"`
	Section   string     `json:"section,omitempty"`
	Body      string     `json:"body"`
	Entities  []string   `json:"entities,omitempty"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Facet names used as FacetWeights keys.
const (
	FacetEntity       = "entity"
	FacetDate         = "date"
	FacetJurisdiction = "jurisdiction"
	FacetDocType      = "doc_type"
)

// FacetWeights maps facet names to weights in [0,1]. Weights are independent
// multipliers, not a distribution; they need not sum to 1. Built fresh per
// query and never persisted.
type FacetWeights map[string]float64

// NeutralWeight is the baseline used when a query carries no signal for a facet.
const NeutralWeight = 0.5

// DefaultFacetWeights returns weights with every facet at the neutral baseline.
func DefaultFacetWeights() FacetWeights {
	return FacetWeights{
		FacetEntity:       NeutralWeight,
		FacetDate:         NeutralWeight,
		FacetJurisdiction: NeutralWeight,
		FacetDocType:      NeutralWeight,
	}
}

// QueryFacets holds the facet values extracted from the query text itself.
// The hybrid engine compares these against chunk metadata to compute per-facet
// agreement. Zero values mean the query carried no signal for that facet.
type QueryFacets struct {
	Entities     []string
	From         *time.Time
	To           *time.Time
	Jurisdiction string
	DocType      string
}

// ScoredCandidate is one ranked piece of evidence. Created by the hybrid
// search engine, adjusted by the decay scorer, and discarded once the query
// completes; only the utility signal survives in the memory store.
type ScoredCandidate struct {
	Chunk         Chunk
	SemanticScore float64
	FacetScore    float64
	CombinedScore float64
	Utility       float64
	AdjustedScore float64
}

// MemoryRecord is the persisted recency signal for a chunk that has been
// cited at least once. Last-writer-wins per chunk.
type MemoryRecord struct {
	ChunkID      string     `json:"chunk_id"`
	LastUsefulAt *time.Time `json:"last_useful_at,omitempty"`
	Utility      float64    `json:"utility"`
}

// Citation is the externally visible evidence reference on an answer.
type Citation struct {
	DocID   string  `json:"doc_id"`
	Section string  `json:"section,omitempty"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Answer is the synthesized result delivered to the client.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// HardFilters excludes non-matching chunks before scoring. Facets are soft
// signals unless the caller supplies these explicitly.
type HardFilters struct {
	Jurisdiction string
	DocType      string
	From         *time.Time
	To           *time.Time
}
