package result

import (
	"encoding/json"

	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// Failure explains why a page is empty for reasons other than "no matches".
type Failure string

// Failure reasons.
const (
	FailureNone         Failure = ""
	FailureQuery        Failure = "query_failed"
	FailureIndexMissing Failure = "index_missing"
	FailureTimeout      Failure = "timeout"
)

// Hit is one ranked document, passed through from the index unmodified.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source,omitempty"`
}

// Page is the ranked result window for one similarity call.
type Page struct {
	strategy strategy.Strategy
	total    int64
	relation string
	maxScore *float64
	hits     []Hit
	failure  Failure
}

// New creates a successful page.
func New(s strategy.Strategy, total int64, maxScore *float64, hits []Hit) Page {
	if hits == nil {
		hits = []Hit{}
	}
	return Page{strategy: s, total: total, maxScore: maxScore, hits: hits}
}

// Failed creates an empty page carrying the failure reason.
func Failed(s strategy.Strategy, reason Failure) Page {
	if reason == FailureNone {
		reason = FailureQuery
	}
	return Page{strategy: s, hits: []Hit{}, failure: reason}
}

// WithRelation returns a copy with the engine total relation ("eq" or "gte").
func (p Page) WithRelation(rel string) Page {
	p.relation = rel
	return p
}

// Strategy returns the strategy that produced the page.
func (p Page) Strategy() strategy.Strategy { return p.strategy }

// Total returns the engine-reported total hit count.
func (p Page) Total() int64 { return p.total }

// Relation reports whether Total is exact ("eq") or a lower bound ("gte").
func (p Page) Relation() string {
	if p.relation == "" {
		return "eq"
	}
	return p.relation
}

// MaxScore returns the best score, nil when there were no hits.
func (p Page) MaxScore() *float64 { return p.maxScore }

// Hits returns the ranked hits (never nil).
func (p Page) Hits() []Hit { return p.hits }

// Failure returns the failure reason, FailureNone on success.
func (p Page) Failure() Failure { return p.failure }

// Failed reports whether the index call behind this page failed.
func (p Page) Failed() bool { return p.failure != FailureNone }
