package db

import "errors"

// Query is a single query DSL clause, serialized as-is into the request body.
type Query map[string]any

// Terms matches documents whose field equals any of the values exactly.
func Terms(field string, values ...any) Query {
	return Query{"terms": map[string]any{field: values}}
}

// MultiMatchBuilder is a fluent builder for multi_match clauses.
type MultiMatchBuilder struct {
	query  string
	fields []string
	boost  float64
}

// NewMultiMatch starts a multi_match clause over the given fields.
func NewMultiMatch(query string, fields ...string) *MultiMatchBuilder {
	return &MultiMatchBuilder{query: query, fields: fields}
}

// Boost sets the clause weight.
func (b *MultiMatchBuilder) Boost(v float64) *MultiMatchBuilder {
	b.boost = v
	return b
}

// Build returns the clause.
func (b *MultiMatchBuilder) Build() Query {
	body := map[string]any{
		"query":  b.query,
		"fields": b.fields,
	}
	if b.boost > 0 {
		body["boost"] = b.boost
	}
	return Query{"multi_match": body}
}

// SemanticBuilder is a fluent builder for semantic clauses over semantic_text fields.
type SemanticBuilder struct {
	field string
	query string
	boost float64
}

// NewSemantic starts a semantic clause.
func NewSemantic(field, query string) *SemanticBuilder {
	return &SemanticBuilder{field: field, query: query}
}

// Boost sets the clause weight.
func (b *SemanticBuilder) Boost(v float64) *SemanticBuilder {
	b.boost = v
	return b
}

// Build returns the clause.
func (b *SemanticBuilder) Build() Query {
	body := map[string]any{
		"field": b.field,
		"query": b.query,
	}
	if b.boost > 0 {
		body["boost"] = b.boost
	}
	return Query{"semantic": body}
}

// LikeDoc references an indexed document for more_like_this.
type LikeDoc struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// MoreLikeThisBuilder is a fluent builder for more_like_this clauses.
type MoreLikeThisBuilder struct {
	fields        []string
	like          []LikeDoc
	minTermFreq   int
	maxQueryTerms int
	include       bool
}

// NewMoreLikeThis starts a more_like_this clause over the given fields.
func NewMoreLikeThis(fields ...string) *MoreLikeThisBuilder {
	return &MoreLikeThisBuilder{fields: fields}
}

// Like adds a reference document.
func (b *MoreLikeThisBuilder) Like(index, id string) *MoreLikeThisBuilder {
	b.like = append(b.like, LikeDoc{Index: index, ID: id})
	return b
}

// MinTermFreq sets the minimum term frequency in the reference document.
func (b *MoreLikeThisBuilder) MinTermFreq(n int) *MoreLikeThisBuilder {
	b.minTermFreq = n
	return b
}

// MaxQueryTerms caps the number of selected terms.
func (b *MoreLikeThisBuilder) MaxQueryTerms(n int) *MoreLikeThisBuilder {
	b.maxQueryTerms = n
	return b
}

// Include controls whether reference documents may appear in the results.
func (b *MoreLikeThisBuilder) Include(v bool) *MoreLikeThisBuilder {
	b.include = v
	return b
}

// Build validates and returns the clause.
func (b *MoreLikeThisBuilder) Build() (Query, error) {
	if len(b.fields) == 0 {
		return nil, errors.New("more_like_this requires at least one field")
	}
	if len(b.like) == 0 {
		return nil, errors.New("more_like_this requires at least one reference document")
	}
	body := map[string]any{
		"fields":  b.fields,
		"like":    b.like,
		"include": b.include,
	}
	if b.minTermFreq > 0 {
		body["min_term_freq"] = b.minTermFreq
	}
	if b.maxQueryTerms > 0 {
		body["max_query_terms"] = b.maxQueryTerms
	}
	return Query{"more_like_this": body}, nil
}

// BoolBuilder is a fluent builder for bool compound clauses.
type BoolBuilder struct {
	must   []Query
	should []Query
}

// NewBool starts a bool clause.
func NewBool() *BoolBuilder {
	return &BoolBuilder{}
}

// Must adds clauses that have to match and contribute to the score.
func (b *BoolBuilder) Must(q ...Query) *BoolBuilder {
	b.must = append(b.must, q...)
	return b
}

// Should adds clauses that only contribute to the score.
func (b *BoolBuilder) Should(q ...Query) *BoolBuilder {
	b.should = append(b.should, q...)
	return b
}

// Build validates and returns the clause.
func (b *BoolBuilder) Build() (Query, error) {
	if len(b.must)+len(b.should) == 0 {
		return nil, errors.New("bool query requires at least one clause")
	}
	body := map[string]any{}
	if len(b.must) > 0 {
		body["must"] = b.must
	}
	if len(b.should) > 0 {
		body["should"] = b.should
	}
	return Query{"bool": body}, nil
}
