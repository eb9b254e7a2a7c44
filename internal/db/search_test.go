package db

import (
	"encoding/json"
	"testing"
)

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{"ok", SearchRequest{Index: "c", Query: Terms("a", 1), Size: 10}, false},
		{"no index", SearchRequest{Query: Terms("a", 1)}, true},
		{"no query", SearchRequest{Index: "c"}, true},
		{"negative from", SearchRequest{Index: "c", Query: Terms("a", 1), From: -1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSearchRequest_Body(t *testing.T) {
	req := SearchRequest{
		Index:  "companies",
		Query:  Terms("company_id", 7),
		Size:   5,
		From:   10,
		Source: SourceFilter{Excludes: []string{"full_description_embedding"}},
	}
	data, err := req.Body()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["size"].(float64) != 5 || body["from"].(float64) != 10 {
		t.Errorf("size/from = %v/%v", body["size"], body["from"])
	}
	src := body["_source"].(map[string]any)
	if len(src["excludes"].([]any)) != 1 {
		t.Errorf("_source = %v", src)
	}
	if _, ok := src["includes"]; ok {
		t.Error("empty includes must be omitted")
	}
}

func TestSearchRequest_BodyWithoutSource(t *testing.T) {
	req := SearchRequest{Index: "c", Query: Terms("a", 1), Size: 1}
	data, _ := req.Body()
	var body map[string]any
	_ = json.Unmarshal(data, &body)
	if _, ok := body["_source"]; ok {
		t.Error("_source must be omitted when no filter is set")
	}
}

func TestKNNRequest_Validate(t *testing.T) {
	base := KNNRequest{Index: "c", Field: "v", Vector: []float32{1}, K: 10, NumCandidates: 100}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tooMany := base
	tooMany.K = 101
	if err := tooMany.Validate(); err == nil {
		t.Error("expected error when k exceeds num_candidates")
	}

	noVec := base
	noVec.Vector = nil
	if err := noVec.Validate(); err == nil {
		t.Error("expected error without vector")
	}
}

func TestKNNRequest_Body(t *testing.T) {
	req := KNNRequest{
		Index:         "companies",
		Field:         "full_description_embedding",
		Vector:        []float32{0.5, 0.25},
		K:             5,
		NumCandidates: 100,
		Size:          5,
		From:          0,
	}
	data, err := req.Body()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	knn := body["knn"].(map[string]any)
	if knn["k"].(float64) != 5 || knn["num_candidates"].(float64) != 100 {
		t.Errorf("knn = %v", knn)
	}
	if len(knn["query_vector"].([]any)) != 2 {
		t.Errorf("query_vector = %v", knn["query_vector"])
	}
}
