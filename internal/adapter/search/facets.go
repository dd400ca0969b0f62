package search

import (
	"strings"
	"time"

	"ragpipe/internal/domain"
)

// facetAgreement computes the per-facet agreement in [0,1] between the
// query-side facet values and a chunk's metadata, then folds them into the
// weighted facet score: sum(w_i * agreement_i) / sum(w_i). All-zero weights
// fall back to 0.
func facetAgreement(weights domain.FacetWeights, query domain.QueryFacets, chunk domain.Chunk, doc domain.Document) float64 {
	var weighted, total float64

	score := func(facet string, agreement float64) {
		w := weights[facet]
		if w <= 0 {
			return
		}
		weighted += w * agreement
		total += w
	}

	score(domain.FacetEntity, entityOverlap(query.Entities, chunk, doc))
	score(domain.FacetDate, dateOverlap(query.From, query.To, chunk.ValidFrom, chunk.ValidTo))
	score(domain.FacetJurisdiction, exactMatch(query.Jurisdiction, doc.Jurisdiction))
	score(domain.FacetDocType, exactMatch(query.DocType, doc.DocType))

	if total == 0 {
		return 0
	}
	return weighted / total
}

// entityOverlap is the fraction of query entities present in the chunk's
// entity set (falling back to the document's). No query entities means no
// agreement signal.
func entityOverlap(queryEntities []string, chunk domain.Chunk, doc domain.Document) float64 {
	if len(queryEntities) == 0 {
		return 0
	}

	chunkEntities := chunk.Entities
	if len(chunkEntities) == 0 {
		chunkEntities = doc.Entities
	}
	if len(chunkEntities) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(chunkEntities))
	for _, e := range chunkEntities {
		set[strings.ToLower(e)] = struct{}{}
	}

	matched := 0
	for _, e := range queryEntities {
		if _, ok := set[strings.ToLower(e)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryEntities))
}

// dateOverlap is the fraction of the query's date range covered by the
// chunk's validity range. Either side missing a range yields 0.
func dateOverlap(qFrom, qTo, cFrom, cTo *time.Time) float64 {
	if qFrom == nil || qTo == nil || !qTo.After(*qFrom) {
		return 0
	}
	if cFrom == nil && cTo == nil {
		return 0
	}

	// Open-ended chunk bounds extend to the query bound on that side.
	from := *qFrom
	if cFrom != nil && cFrom.After(from) {
		from = *cFrom
	}
	to := *qTo
	if cTo != nil && cTo.Before(to) {
		to = *cTo
	}
	if !to.After(from) {
		return 0
	}

	overlap := to.Sub(from).Hours()
	span := qTo.Sub(*qFrom).Hours()
	frac := overlap / span
	if frac > 1 {
		frac = 1
	}
	return frac
}

// exactMatch is 1 when both sides are set and equal (case-insensitive), else 0.
func exactMatch(queryValue, chunkValue string) float64 {
	if queryValue == "" || chunkValue == "" {
		return 0
	}
	if strings.EqualFold(queryValue, chunkValue) {
		return 1
	}
	return 0
}
