package port

import "ragpipe/internal/domain"

// FacetPlanner infers per-query facet weights. Deterministic for identical
// input; never fails the pipeline — with no facet signal it returns the
// neutral default weights.
type FacetPlanner interface {
	Plan(queryText string) domain.FacetWeights
}

// FacetExtractor pulls the query-side facet values (entities, date range,
// jurisdiction, doc type) used by per-facet agreement scoring.
type FacetExtractor interface {
	Extract(queryText string) domain.QueryFacets
}
