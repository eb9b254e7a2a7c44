package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/peerdex/internal/db"
)

// fakeTransport answers every request with the canned handler and records what was sent.
type fakeTransport struct {
	mu       sync.Mutex
	handler  func(r *http.Request, body []byte) (int, string)
	requests []recorded
}

type recorded struct {
	method string
	path   string
	body   []byte
}

func (f *fakeTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: body})
	f.mu.Unlock()

	status, payload := f.handler(r, body)
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    r,
	}, nil
}

func (f *fakeTransport) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestStore(t *testing.T, handler func(r *http.Request, body []byte) (int, string)) (*Store, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{handler: handler}
	s, err := NewStore(Config{
		Addrs:          []string{"http://es.test:9200"},
		Username:       "elastic",
		Password:       "secret",
		RequestTimeout: 5 * time.Second,
		StatusAttempts: 2,
		Transport:      ft,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, ft
}

func fixed(status int, payload string) func(*http.Request, []byte) (int, string) {
	return func(*http.Request, []byte) (int, string) { return status, payload }
}

const notFoundBody = `{"error":{"type":"index_not_found_exception","reason":"no such index [companies]"},"status":404}`

// --- client.go tests ---

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestNewStore_MissingCACert(t *testing.T) {
	_, err := NewStore(Config{Addrs: []string{"https://es:9200"}, CACertPath: "/nonexistent/ca.crt"})
	if err == nil {
		t.Fatal("expected error for unreadable CA cert")
	}
}

func TestPing_Success(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusOK, `{}`))
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusServiceUnavailable, `{}`))
	err := s.Ping(context.Background())
	if !isDBError(err, db.OpPing) {
		t.Fatalf("expected *db.Error{Op: PING}, got %v", err)
	}
}

// --- search.go tests ---

func TestSearch_Success(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{
		"timed_out": false,
		"hits": {
			"total": {"value": 42, "relation": "eq"},
			"max_score": 3.5,
			"hits": [
				{"_index": "companies", "_id": "7", "_score": 3.5, "_source": {"company_id": 7}},
				{"_index": "companies", "_id": "9", "_score": 1.25, "_source": {"company_id": 9}}
			]
		}
	}`))

	res, err := s.Search(context.Background(), &db.SearchRequest{
		Index: "companies",
		Query: db.Terms("company_id", 7),
		Size:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 42 || res.TotalRelation != "eq" {
		t.Errorf("total = %d/%s", res.Total, res.TotalRelation)
	}
	if res.MaxScore == nil || *res.MaxScore != 3.5 {
		t.Errorf("max score = %v", res.MaxScore)
	}
	if len(res.Hits) != 2 || res.Hits[1].ID != "9" || res.Hits[1].Score != 1.25 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if string(res.Hits[0].Source) != `{"company_id": 7}` {
		t.Errorf("source = %s", res.Hits[0].Source)
	}

	req := ft.last()
	if req.method != http.MethodPost || req.path != "/companies/_search" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	var body map[string]any
	if err := json.Unmarshal(req.body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if _, ok := body["query"].(map[string]any)["terms"]; !ok {
		t.Errorf("body = %s", req.body)
	}
}

func TestSearch_NullScores(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusOK, `{
		"hits": {"total": {"value": 0, "relation": "eq"}, "max_score": null, "hits": []}
	}`))

	res, err := s.Search(context.Background(), &db.SearchRequest{Index: "c", Query: db.Terms("a", 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MaxScore != nil {
		t.Errorf("max score = %v, want nil", *res.MaxScore)
	}
	if res.Hits == nil || len(res.Hits) != 0 {
		t.Errorf("hits = %v, want empty non-nil", res.Hits)
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusNotFound, notFoundBody))

	_, err := s.Search(context.Background(), &db.SearchRequest{Index: "companies", Query: db.Terms("a", 1)})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if !isDBError(err, db.OpSearch) {
		t.Errorf("expected *db.Error{Op: SEARCH}, got %v", err)
	}
}

func TestSearch_BadRequest(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusBadRequest,
		`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":400}`))

	_, err := s.Search(context.Background(), &db.SearchRequest{Index: "c", Query: db.Terms("a", 1)})
	if !errors.Is(err, db.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "all shards failed") {
		t.Errorf("error should carry the engine reason: %v", err)
	}
}

func TestSearch_Validation(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{}`))
	if _, err := s.Search(context.Background(), &db.SearchRequest{Index: "c"}); err == nil {
		t.Fatal("expected validation error")
	}
	if ft.count() != 0 {
		t.Error("invalid request must not reach the engine")
	}
}

func TestSearch_Timeout(t *testing.T) {
	s, err := NewStore(Config{
		Addrs:          []string{"http://es.test:9200"},
		RequestTimeout: time.Nanosecond,
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		}),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, err = s.Search(context.Background(), &db.SearchRequest{Index: "c", Query: db.Terms("a", 1)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSearchKNN_Success(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{
		"hits": {"total": {"value": 5, "relation": "eq"}, "max_score": 0.9,
			"hits": [{"_index": "companies", "_id": "3", "_score": 0.9, "_source": {}}]}
	}`))

	res, err := s.SearchKNN(context.Background(), &db.KNNRequest{
		Index:         "companies",
		Field:         "full_description_embedding",
		Vector:        []float32{0.1, 0.2},
		K:             5,
		NumCandidates: 100,
		Size:          5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "3" {
		t.Fatalf("hits = %+v", res.Hits)
	}

	var body map[string]any
	_ = json.Unmarshal(ft.last().body, &body)
	knn, ok := body["knn"].(map[string]any)
	if !ok || knn["field"] != "full_description_embedding" {
		t.Errorf("body = %s", ft.last().body)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusOK, `{}`))
	_, err := s.SearchKNN(context.Background(), &db.KNNRequest{Index: "c", Field: "v", Vector: []float32{1}, K: 10, NumCandidates: 5})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

// --- index.go tests ---

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{"exists", http.StatusOK, true, false},
		{"missing", http.StatusNotFound, false, false},
		{"error", http.StatusInternalServerError, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, ft := newTestStore(t, fixed(tc.status, ``))
			got, err := s.IndexExists(context.Background(), "companies")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("exists = %v, want %v", got, tc.want)
			}
			if r := ft.last(); r.method != http.MethodHead || r.path != "/companies" {
				t.Errorf("request = %s %s", r.method, r.path)
			}
		})
	}
}

func TestCreateIndex_Success(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{"acknowledged":true}`))

	m, err := db.NewMapping("companies").Long("company_id").Text("description").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := s.CreateIndex(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := ft.last()
	if r.method != http.MethodPut || r.path != "/companies" {
		t.Errorf("request = %s %s", r.method, r.path)
	}
	if !strings.Contains(string(r.body), `"mappings"`) {
		t.Errorf("body = %s", r.body)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusBadRequest,
		`{"error":{"type":"resource_already_exists_exception","reason":"index [companies] already exists"},"status":400}`))

	m, err := db.NewMapping("companies").Long("company_id").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	err = s.CreateIndex(context.Background(), m)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidMapping(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{}`))
	err := s.CreateIndex(context.Background(), &db.IndexMapping{Name: "companies"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if ft.count() != 0 {
		t.Error("invalid mapping must not reach the engine")
	}
}

func TestDeleteIndex_NotFound(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusNotFound, notFoundBody))
	if err := s.DeleteIndex(context.Background(), "companies"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexStats_Success(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{"_all":{"primaries":{"docs":{"count":12}}}}`))

	stats, err := s.IndexStats(context.Background(), "companies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(stats), `"count":12`) {
		t.Errorf("stats = %s", stats)
	}
	if r := ft.last(); r.path != "/companies/_stats" {
		t.Errorf("path = %s", r.path)
	}
}

func TestIndexStats_RetriesTransientFailure(t *testing.T) {
	calls := 0
	s, ft := newTestStore(t, func(*http.Request, []byte) (int, string) {
		calls++
		if calls == 1 {
			return http.StatusServiceUnavailable, `{"error":{"type":"unavailable","reason":"busy"},"status":503}`
		}
		return http.StatusOK, `{"_all":{}}`
	})

	if _, err := s.IndexStats(context.Background(), "companies"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ft.count() != 2 {
		t.Errorf("requests = %d, want 2", ft.count())
	}
}

func TestIndexStats_GivesUpAfterAttempts(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusServiceUnavailable, `{}`))

	_, err := s.IndexStats(context.Background(), "companies")
	if !isDBError(err, db.OpIndexStats) {
		t.Fatalf("expected *db.Error{Op: INDICES_STATS}, got %v", err)
	}
	if ft.count() != 2 {
		t.Errorf("requests = %d, want 2", ft.count())
	}
}

func TestIndexStats_MissingIndexNotRetried(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusNotFound, notFoundBody))

	_, err := s.IndexStats(context.Background(), "companies")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if ft.count() != 1 {
		t.Errorf("requests = %d, want 1", ft.count())
	}
}

// --- bulk.go tests ---

func TestBulkIndex_Success(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{"took":3,"errors":false,"items":[
		{"index":{"_index":"companies","_id":"1","status":201}},
		{"index":{"_index":"companies","_id":"2","status":201}}
	]}`))

	stats, err := s.BulkIndex(context.Background(), "companies", []db.BulkDocument{
		{ID: "1", Body: []byte(`{"company_id":1}`)},
		{ID: "2", Body: []byte(`{"company_id":2}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Indexed != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}

	r := ft.last()
	if r.path != "/companies/_bulk" {
		t.Errorf("path = %s", r.path)
	}
	if strings.Count(string(r.body), `"_id":"`) != 2 {
		t.Errorf("body = %s", r.body)
	}
}

func TestBulkIndex_PartialFailure(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusOK, `{"took":3,"errors":true,"items":[
		{"index":{"_index":"companies","_id":"1","status":201}},
		{"index":{"_index":"companies","_id":"2","status":400,
			"error":{"type":"mapper_parsing_exception","reason":"bad vector"}}}
	]}`))

	stats, err := s.BulkIndex(context.Background(), "companies", []db.BulkDocument{
		{ID: "1", Body: []byte(`{}`)},
		{ID: "2", Body: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if stats.Indexed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBulkIndex_AllFailed(t *testing.T) {
	s, _ := newTestStore(t, fixed(http.StatusOK, `{"took":3,"errors":true,"items":[
		{"index":{"_index":"companies","_id":"1","status":400,
			"error":{"type":"mapper_parsing_exception","reason":"bad vector"}}}
	]}`))

	_, err := s.BulkIndex(context.Background(), "companies", []db.BulkDocument{{ID: "1", Body: []byte(`{}`)}})
	if !isDBError(err, db.OpBulk) {
		t.Fatalf("expected *db.Error{Op: BULK}, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad vector") {
		t.Errorf("error should carry the rejection reason: %v", err)
	}
}

func TestBulkIndex_Empty(t *testing.T) {
	s, ft := newTestStore(t, fixed(http.StatusOK, `{}`))
	stats, err := s.BulkIndex(context.Background(), "companies", nil)
	if err != nil || stats != (db.BulkStats{}) {
		t.Fatalf("stats = %+v, err = %v", stats, err)
	}
	if ft.count() != 0 {
		t.Error("empty bulk must not reach the engine")
	}
}

func isDBError(err error, op string) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr) && dbErr.Op == op
}
