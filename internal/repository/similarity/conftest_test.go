package similarity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/peerdex/internal/db"
)

// mockStore implements the consumer interface for tests and records every request.
type mockStore struct {
	searchFn    func(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error)
	searchKNNFn func(ctx context.Context, req *db.KNNRequest) (*db.SearchResult, error)

	searches []*db.SearchRequest
	knns     []*db.KNNRequest
}

func (m *mockStore) Search(ctx context.Context, req *db.SearchRequest) (*db.SearchResult, error) {
	m.searches = append(m.searches, req)
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, req *db.KNNRequest) (*db.SearchResult, error) {
	m.knns = append(m.knns, req)
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, req)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, DefaultSettings("companies")), ms
}

// asMap renders a query clause through JSON so tests assert on the wire shape.
func asMap(t *testing.T, q db.Query) map[string]any {
	t.Helper()
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func seedHit(id, source string) *db.SearchResult {
	return &db.SearchResult{
		Total: 1,
		Hits:  []db.SearchHit{{Index: "companies", ID: id, Score: 1, Source: json.RawMessage(source)}},
	}
}
