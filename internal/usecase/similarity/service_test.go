package similarity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/query"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
	"github.com/kailas-cloud/peerdex/internal/metrics"
)

func TestStrategies_BuildMatchingQuery(t *testing.T) {
	ctx := context.Background()
	req := mustRequest(t, 1, 10)
	tests := []struct {
		name string
		call func(*Service) (result.Page, error)
		want strategy.Strategy
	}{
		{"tf_idf", func(s *Service) (result.Page, error) { return s.TFIDF(ctx, req) }, strategy.TFIDF},
		{"semantic", func(s *Service) (result.Page, error) { return s.Semantic(ctx, req) }, strategy.Semantic},
		{"dense", func(s *Service) (result.Page, error) { return s.DenseVector(ctx, req) }, strategy.DenseVector},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRepo{seed: testSeed(), page: onePage(tc.want)}
			page, err := tc.call(New(repo))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Hits()) != 1 {
				t.Errorf("hits = %d, want 1", len(page.Hits()))
			}
			if len(repo.queries) != 1 || repo.queries[0].Strategy() != tc.want {
				t.Fatalf("queries = %+v", repo.queries)
			}
		})
	}
}

func TestSimilar_SemanticScenario(t *testing.T) {
	repo := &mockRepo{seed: testSeed(), page: onePage(strategy.Semantic)}
	svc := New(repo)

	if _, err := svc.Semantic(context.Background(), mustRequest(t, 1, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.seedCalls != 1 {
		t.Errorf("seed calls = %d, want 1", repo.seedCalls)
	}
	q, ok := repo.queries[0].(query.SparseSemantic)
	if !ok {
		t.Fatalf("query type = %T", repo.queries[0])
	}
	if q.Window() != (query.Window{Size: 5, Offset: 0}) {
		t.Errorf("window = %+v", q.Window())
	}
	if q.FullDescription != testSeed().FullDescription() {
		t.Errorf("full description = %q", q.FullDescription)
	}
}

func TestSimilar_PaginationOffset(t *testing.T) {
	repo := &mockRepo{seed: testSeed(), page: onePage(strategy.TFIDF)}
	if _, err := New(repo).TFIDF(context.Background(), mustRequest(t, 3, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w := repo.queries[0].Window(); w.Offset != 10 || w.Size != 5 {
		t.Errorf("window = %+v, want offset 10 size 5", w)
	}
}

func TestSimilar_SeedNotFoundSkipsPhaseTwo(t *testing.T) {
	repo := &mockRepo{seedErr: fmt.Errorf("%w: company_id=42", domain.ErrSeedNotFound)}
	before := testutil.ToFloat64(metrics.SimilarityRequestsTotal.WithLabelValues("tf_idf", metrics.OutcomeSeedNotFound))

	_, err := New(repo).TFIDF(context.Background(), mustRequest(t, 1, 10))
	if !errors.Is(err, domain.ErrSeedNotFound) {
		t.Fatalf("expected ErrSeedNotFound, got %v", err)
	}
	if len(repo.queries) != 0 {
		t.Error("phase two must not run without a seed")
	}
	after := testutil.ToFloat64(metrics.SimilarityRequestsTotal.WithLabelValues("tf_idf", metrics.OutcomeSeedNotFound))
	if after != before+1 {
		t.Errorf("seed_not_found counter = %v, want %v", after, before+1)
	}
}

func TestSimilar_SeedLookupUnavailable(t *testing.T) {
	repo := &mockRepo{seedErr: fmt.Errorf("%w: boom", domain.ErrIndexUnavailable)}

	_, err := New(repo).Semantic(context.Background(), mustRequest(t, 1, 10))
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrSeedNotFound) {
		t.Error("unavailable index must not look like a missing seed")
	}
}

func TestSimilar_DenseSeedWithoutEmbedding(t *testing.T) {
	seed := company.Reconstruct("doc-42", 42, "d", nil, nil, "d", nil)
	repo := &mockRepo{seed: seed}

	_, err := New(repo).DenseVector(context.Background(), mustRequest(t, 1, 10))
	if !errors.Is(err, domain.ErrSeedNotFound) {
		t.Fatalf("expected ErrSeedNotFound, got %v", err)
	}
	if len(repo.queries) != 0 {
		t.Error("no knn query without a seed vector")
	}
}

func TestSimilar_PhaseTwoFailureIsEmptyPage(t *testing.T) {
	repo := &mockRepo{
		seed:    testSeed(),
		page:    result.Failed(strategy.DenseVector, result.FailureTimeout),
		execErr: fmt.Errorf("%w: deadline", domain.ErrIndexUnavailable),
	}

	page, err := New(repo).DenseVector(context.Background(), mustRequest(t, 1, 10))
	if err != nil {
		t.Fatalf("phase two failure should not be an error, got %v", err)
	}
	if !page.Failed() || page.Failure() != result.FailureTimeout {
		t.Errorf("failure = %q, want timeout", page.Failure())
	}
	if len(page.Hits()) != 0 {
		t.Errorf("hits = %d, want 0", len(page.Hits()))
	}
}

func TestSimilar_BuildErrorPropagates(t *testing.T) {
	repo := &mockRepo{seed: testSeed(), execErr: errors.New("bad query")}

	if _, err := New(repo).TFIDF(context.Background(), mustRequest(t, 1, 10)); err == nil {
		t.Fatal("expected error for a non-failure execute error")
	}
}

func TestSimilar_InvalidStrategy(t *testing.T) {
	_, err := New(&mockRepo{}).Similar(context.Background(), strategy.Strategy("bm42"), mustRequest(t, 1, 10))
	if !errors.Is(err, domain.ErrInvalidStrategy) {
		t.Fatalf("expected ErrInvalidStrategy, got %v", err)
	}
}

func TestSimilar_CacheHitSkipsRepo(t *testing.T) {
	cache := newMockCache()
	repo := &mockRepo{seed: testSeed(), page: onePage(strategy.TFIDF)}
	svc := New(repo, WithCache(cache))
	req := mustRequest(t, 1, 10)

	if _, err := svc.TFIDF(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.TFIDF(context.Background(), req); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if repo.seedCalls != 1 {
		t.Errorf("seed calls = %d, want 1 (second served from cache)", repo.seedCalls)
	}
	if cache.puts != 1 {
		t.Errorf("puts = %d, want 1", cache.puts)
	}
}

func TestSimilar_FailedPageNotCached(t *testing.T) {
	cache := newMockCache()
	repo := &mockRepo{
		seed:    testSeed(),
		page:    result.Failed(strategy.TFIDF, result.FailureQuery),
		execErr: domain.ErrIndexUnavailable,
	}
	if _, err := New(repo, WithCache(cache)).TFIDF(context.Background(), mustRequest(t, 1, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.puts != 0 {
		t.Errorf("puts = %d, want 0", cache.puts)
	}
}

func TestSimilar_RecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	repo := &mockRepo{seedErr: domain.ErrSeedNotFound}
	svc := New(repo, WithTracer(provider.Tracer("test")))
	_, _ = svc.Semantic(context.Background(), mustRequest(t, 1, 10))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name != "similarity.semantic" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected the error to be recorded on the span")
	}
}
