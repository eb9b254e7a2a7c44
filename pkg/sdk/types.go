package peerdex

import (
	"encoding/json"

	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// Strategy selects the similarity retrieval paradigm.
type Strategy string

// Supported strategies.
const (
	TFIDF       Strategy = Strategy(strategy.TFIDF)
	Semantic    Strategy = Strategy(strategy.Semantic)
	DenseVector Strategy = Strategy(strategy.DenseVector)
)

// Hit is one similar company. Source is the indexed document verbatim.
type Hit struct {
	Index  string
	ID     string
	Score  float64
	Source json.RawMessage
}

// Page is one page of similar companies, best first.
type Page struct {
	Strategy Strategy
	Total    int64
	// Relation is "eq" when Total is exact and "gte" when it is a lower bound.
	Relation string
	MaxScore *float64
	Hits     []Hit
	// Degraded names the failure that emptied the page after the seed was found.
	// Empty on success.
	Degraded string
}

// Status reports whether the company index can be queried.
type Status struct {
	Ready   bool
	Message string
	// Stats holds the engine index statistics verbatim when Ready.
	Stats json.RawMessage
}

func pageFromResult(p result.Page) Page {
	hits := make([]Hit, len(p.Hits()))
	for i, h := range p.Hits() {
		hits[i] = Hit{Index: h.Index, ID: h.ID, Score: h.Score, Source: h.Source}
	}
	return Page{
		Strategy: Strategy(p.Strategy()),
		Total:    p.Total(),
		Relation: p.Relation(),
		MaxScore: p.MaxScore(),
		Hits:     hits,
		Degraded: string(p.Failure()),
	}
}
