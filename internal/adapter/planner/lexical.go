package planner

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ragpipe/internal/domain"
)

// LexicalPlanner infers facet weights and query-side facet values from
// surface cues in the query text. Purely lexical and stateless, so identical
// input always yields identical output.
type LexicalPlanner struct {
	jurisdictions map[string]string
	docTypes      map[string]string
}

// NewLexicalPlanner creates a planner with the built-in cue vocabularies.
func NewLexicalPlanner() *LexicalPlanner {
	return &LexicalPlanner{
		jurisdictions: map[string]string{
			"us": "US", "usa": "US", "federal": "US",
			"eu": "EU", "european": "EU",
			"uk": "UK", "british": "UK",
			"california": "CA-US", "delaware": "DE-US",
			"korea": "KR", "korean": "KR",
		},
		docTypes: map[string]string{
			"minutes": "minutes", "meeting": "minutes",
			"contract": "contract", "agreement": "contract",
			"report": "report", "memo": "memo",
			"policy": "policy", "invoice": "invoice",
		},
	}
}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	monthRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)
	dateWordRe = regexp.MustCompile(`(?i)\b(when|date|dates|schedule|scheduled|deadline|recent|latest|today|yesterday|last week|this week)\b`)
	entityRe   = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)
	quotedRe   = regexp.MustCompile(`"([^"]+)"`)
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Plan infers a weight per facet. Each lexical cue raises the facet's weight
// from the neutral baseline; a query with no cues at all gets the neutral
// default for every facet.
func (p *LexicalPlanner) Plan(queryText string) domain.FacetWeights {
	weights := domain.DefaultFacetWeights()

	boost := func(facet string, hits int) {
		if hits == 0 {
			return
		}
		w := domain.NeutralWeight + 0.2*float64(hits)
		if w > 1.0 {
			w = 1.0
		}
		weights[facet] = w
	}

	boost(domain.FacetDate, p.dateCues(queryText))
	boost(domain.FacetEntity, len(p.entities(queryText)))
	if _, ok := p.jurisdiction(queryText); ok {
		boost(domain.FacetJurisdiction, 1)
	}
	if _, ok := p.docType(queryText); ok {
		boost(domain.FacetDocType, 1)
	}

	return weights
}

// Extract pulls query-side facet values for agreement scoring.
func (p *LexicalPlanner) Extract(queryText string) domain.QueryFacets {
	facets := domain.QueryFacets{
		Entities: p.entities(queryText),
	}
	if from, to, ok := p.dateRange(queryText); ok {
		facets.From = &from
		facets.To = &to
	}
	if j, ok := p.jurisdiction(queryText); ok {
		facets.Jurisdiction = j
	}
	if dt, ok := p.docType(queryText); ok {
		facets.DocType = dt
	}
	return facets
}

func (p *LexicalPlanner) dateCues(text string) int {
	hits := 0
	hits += len(isoDateRe.FindAllString(text, -1))
	hits += len(yearRe.FindAllString(text, -1))
	hits += len(monthRe.FindAllString(text, -1))
	hits += len(dateWordRe.FindAllString(text, -1))
	return hits
}

// dateRange derives an explicit range from the most specific date mention:
// full ISO date > month+year > bare year.
func (p *LexicalPlanner) dateRange(text string) (time.Time, time.Time, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		from := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1), true
	}

	monthMatch := monthRe.FindString(text)
	yearMatch := yearRe.FindString(text)

	if monthMatch != "" && yearMatch != "" {
		y, _ := strconv.Atoi(yearMatch)
		mo := months[strings.ToLower(monthMatch)]
		from := time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), true
	}
	if yearMatch != "" {
		y, _ := strconv.Atoi(yearMatch)
		from := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// entities extracts quoted phrases and capitalized word runs. Sentence case
// alone is not an entity cue, so a run at the start of the query is kept only
// when it is still a multi-word name after dropping leading question words.
func (p *LexicalPlanner) entities(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(e string) {
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}

	for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	for _, loc := range entityRe.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		if loc[0] == 0 {
			words := strings.Fields(candidate)
			for len(words) > 0 && p.isStopCue(words[0]) {
				words = words[1:]
			}
			if len(words) < 2 {
				continue
			}
			candidate = strings.Join(words, " ")
		}
		if p.isStopCue(candidate) {
			continue
		}
		add(candidate)
	}
	return out
}

func (p *LexicalPlanner) isStopCue(word string) bool {
	lower := strings.ToLower(word)
	if _, ok := months[lower]; ok {
		return true
	}
	switch lower {
	case "what", "when", "where", "who", "how", "why", "the", "is", "are":
		return true
	}
	return false
}

func (p *LexicalPlanner) jurisdiction(text string) (string, bool) {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,?!\"'")
		if j, ok := p.jurisdictions[tok]; ok {
			return j, true
		}
	}
	return "", false
}

func (p *LexicalPlanner) docType(text string) (string, bool) {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,?!\"'")
		if dt, ok := p.docTypes[tok]; ok {
			return dt, true
		}
	}
	return "", false
}
