package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/peerdex/internal/db"
)

type searchResponse struct {
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total *struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Index  string          `json:"_index"`
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query DSL search.
func (s *Store) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate search request: %w", err)
	}
	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	return s.search(ctx, db.OpSearch, req.Index, body)
}

// SearchKNN runs an approximate nearest neighbor search over a dense_vector field.
func (s *Store) SearchKNN(ctx context.Context, req *db.KNNRequest) (*db.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate knn request: %w", err)
	}
	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	return s.search(ctx, db.OpKNN, req.Index, body)
}

func (s *Store) search(ctx context.Context, op, index string, body []byte) (*db.SearchResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return nil, decodeError(op, res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return sr.toResult(), nil
}

func (sr *searchResponse) toResult() *db.SearchResult {
	out := &db.SearchResult{
		MaxScore: sr.Hits.MaxScore,
		TimedOut: sr.TimedOut,
		Hits:     make([]db.SearchHit, 0, len(sr.Hits.Hits)),
	}
	if sr.Hits.Total != nil {
		out.Total = sr.Hits.Total.Value
		out.TotalRelation = sr.Hits.Total.Relation
	}
	for _, h := range sr.Hits.Hits {
		hit := db.SearchHit{Index: h.Index, ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits = append(out.Hits, hit)
	}
	return out
}
