package db

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SourceFilter selects which _source fields the engine returns.
type SourceFilter struct {
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

func (f SourceFilter) isEmpty() bool {
	return len(f.Includes) == 0 && len(f.Excludes) == 0
}

// SearchRequest is the input for a structured query search.
type SearchRequest struct {
	Index  string
	Query  Query
	Size   int
	From   int
	Source SourceFilter
}

// Validate checks that the request is well-formed.
func (r *SearchRequest) Validate() error {
	if r.Index == "" {
		return errors.New("index is required")
	}
	if len(r.Query) == 0 {
		return errors.New("query is required")
	}
	if r.Size < 0 || r.From < 0 {
		return fmt.Errorf("size and from must be non-negative, got size=%d from=%d", r.Size, r.From)
	}
	return nil
}

// Body encodes the request body.
func (r *SearchRequest) Body() ([]byte, error) {
	body := map[string]any{
		"query": r.Query,
		"size":  r.Size,
		"from":  r.From,
	}
	if !r.Source.isEmpty() {
		body["_source"] = r.Source
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}
	return data, nil
}

// KNNRequest is the input for approximate k-nearest-neighbor search.
type KNNRequest struct {
	Index         string
	Field         string
	Vector        []float32
	K             int
	NumCandidates int
	Size          int
	From          int
	Source        SourceFilter
}

// Validate checks that the request is well-formed.
func (r *KNNRequest) Validate() error {
	if r.Index == "" {
		return errors.New("index is required")
	}
	if r.Field == "" {
		return errors.New("vector field is required")
	}
	if len(r.Vector) == 0 {
		return errors.New("query vector is required")
	}
	if r.K <= 0 {
		return fmt.Errorf("k must be positive, got %d", r.K)
	}
	if r.NumCandidates < r.K {
		return fmt.Errorf("num_candidates (%d) must be >= k (%d)", r.NumCandidates, r.K)
	}
	if r.Size < 0 || r.From < 0 {
		return fmt.Errorf("size and from must be non-negative, got size=%d from=%d", r.Size, r.From)
	}
	return nil
}

// Body encodes the request body.
func (r *KNNRequest) Body() ([]byte, error) {
	body := map[string]any{
		"knn": map[string]any{
			"field":          r.Field,
			"query_vector":   r.Vector,
			"k":              r.K,
			"num_candidates": r.NumCandidates,
		},
		"size": r.Size,
		"from": r.From,
	}
	if !r.Source.isEmpty() {
		body["_source"] = r.Source
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode knn body: %w", err)
	}
	return data, nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total         int64
	TotalRelation string
	MaxScore      *float64
	TimedOut      bool
	Hits          []SearchHit
}

// SearchHit is a single document hit from a search.
type SearchHit struct {
	Index  string
	ID     string
	Score  float64
	Source json.RawMessage
}

// BulkDocument is one document to index with an explicit id.
type BulkDocument struct {
	ID   string
	Body []byte
}

// BulkStats summarizes a bulk run.
type BulkStats struct {
	Indexed uint64
	Failed  uint64
}
