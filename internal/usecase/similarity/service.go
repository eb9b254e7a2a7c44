package similarity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/query"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
	logpkg "github.com/kailas-cloud/peerdex/internal/logger"
	"github.com/kailas-cloud/peerdex/internal/metrics"
)

const instrumentationName = "github.com/kailas-cloud/peerdex/internal/usecase/similarity"

// Service finds companies similar to a seed company.
//
// Every strategy runs the same two phases: resolve the seed document by exact
// match on company_id, then derive and execute the strategy query. A missing
// seed is an error. A failed second phase yields a page carrying the failure
// reason and a nil error.
type Service struct {
	repo   Repository
	cache  PageCache
	tracer trace.Tracer
	logger *zap.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables the result page cache.
func WithCache(c PageCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger used for degraded-query warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a similarity service.
func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tracer: otel.Tracer(instrumentationName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TFIDF returns documents sharing informative terms with the seed.
func (s *Service) TFIDF(ctx context.Context, req request.Request) (result.Page, error) {
	return s.Similar(ctx, strategy.TFIDF, req)
}

// Semantic returns documents matching the seed industries, ranked by semantic closeness.
func (s *Service) Semantic(ctx context.Context, req request.Request) (result.Page, error) {
	return s.Similar(ctx, strategy.Semantic, req)
}

// DenseVector returns the nearest neighbours of the seed embedding.
func (s *Service) DenseVector(ctx context.Context, req request.Request) (result.Page, error) {
	return s.Similar(ctx, strategy.DenseVector, req)
}

// Similar dispatches to the given strategy.
func (s *Service) Similar(ctx context.Context, st strategy.Strategy, req request.Request) (result.Page, error) {
	if !st.IsValid() {
		return result.Page{}, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, st)
	}

	ctx, span := s.tracer.Start(ctx, "similarity."+st.String())
	defer span.End()

	span.SetAttributes(
		attribute.String("strategy", st.String()),
		attribute.Int64("company_id", req.CompanyID()),
		attribute.Int("page", req.Page()),
		attribute.Int("size", req.Size()),
	)

	start := time.Now()
	page, outcome, err := s.run(ctx, st, req)

	metrics.SimilarityDuration.WithLabelValues(st.String()).Observe(time.Since(start).Seconds())
	metrics.SimilarityRequestsTotal.WithLabelValues(st.String(), outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return result.Page{}, err
	}

	metrics.SimilarityHitsReturned.WithLabelValues(st.String()).Observe(float64(len(page.Hits())))
	span.SetAttributes(attribute.Int("hits", len(page.Hits())))
	if page.Failed() {
		span.SetAttributes(attribute.String("failure", string(page.Failure())))
	}
	return page, nil
}

func (s *Service) run(ctx context.Context, st strategy.Strategy, req request.Request) (result.Page, string, error) {
	if s.cache != nil {
		if page, ok := s.cache.Get(ctx, st, req); ok {
			return page, metrics.OutcomeOK, nil
		}
	}

	// Phase 1
	seed, err := s.repo.ResolveSeed(ctx, req.CompanyID(), st)
	if err != nil {
		return result.Page{}, outcomeOf(err), fmt.Errorf("resolve seed: %w", err)
	}

	q, err := query.For(st, seed, req)
	if err != nil {
		return result.Page{}, outcomeOf(err), fmt.Errorf("build %s query: %w", st, err)
	}

	// Phase 2
	page, err := s.repo.Execute(ctx, q)
	if err != nil {
		if !page.Failed() {
			return result.Page{}, metrics.OutcomeError, fmt.Errorf("execute %s query: %w", st, err)
		}
		logpkg.FromContextOr(ctx, s.logger).Warn("Similarity query failed, returning empty page",
			zap.String("strategy", st.String()),
			zap.Int64("company_id", req.CompanyID()),
			zap.String("failure", string(page.Failure())),
			zap.Error(err),
		)
		return page, metrics.OutcomeDegraded, nil
	}

	if s.cache != nil {
		s.cache.Put(ctx, req, page)
	}
	return page, metrics.OutcomeOK, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrSeedNotFound):
		return metrics.OutcomeSeedNotFound
	case errors.Is(err, domain.ErrIndexUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}
