package peerdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbElastic "github.com/kailas-cloud/peerdex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/peerdex/internal/db/redis"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
	"github.com/kailas-cloud/peerdex/internal/metrics"
	"github.com/kailas-cloud/peerdex/internal/repository/simcache"
	similarityrepo "github.com/kailas-cloud/peerdex/internal/repository/similarity"
	similarityuc "github.com/kailas-cloud/peerdex/internal/usecase/similarity"
	statusuc "github.com/kailas-cloud/peerdex/internal/usecase/status"
)

const (
	defaultIndex            = "companies"
	defaultRequestTimeout   = 30 * time.Second
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 5 * time.Minute
)

// Internal interfaces, swapped out in tests.
type similarityUseCase interface {
	Similar(ctx context.Context, s strategy.Strategy, req request.Request) (result.Page, error)
}

type statusUseCase interface {
	Status(ctx context.Context) statusuc.Report
}

type backend interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the peerdex SDK entry point.
type Client struct {
	backends    []backend
	simSvc      similarityUseCase
	statusSvc   statusUseCase
	maxPageSize int
	obs         *observer
}

// New creates a Client and waits for the cluster to answer.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		index:          defaultIndex,
		requestTimeout: defaultRequestTimeout,
		maxPageSize:    request.MaxSize,
		cacheTTL:       defaultCacheTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:              cfg.addrs,
		Username:           cfg.username,
		Password:           cfg.password,
		CACertPath:         cfg.caCertPath,
		InsecureSkipVerify: cfg.insecureSkipVerify,
		RequestTimeout:     cfg.requestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("peerdex: create elasticsearch store: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("peerdex: elasticsearch not ready: %w", err)
	}

	c := &Client{
		backends:    []backend{store},
		statusSvc:   statusuc.New(store, cfg.index, nil, zap.NewNop()),
		maxPageSize: cfg.maxPageSize,
		obs:         obs,
	}

	simOpts := []similarityuc.Option{similarityuc.WithLogger(zap.NewNop())}
	if len(cfg.cacheAddrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("peerdex: create cache store: %w", err)
		}
		c.backends = append(c.backends, cache)
		simOpts = append(simOpts, similarityuc.WithCache(
			simcache.New(cache, cfg.index, cfg.cacheTTL, metrics.SimilarityCacheTotal, zap.NewNop()),
		))
	}

	repo := similarityrepo.New(store, similarityrepo.DefaultSettings(cfg.index))
	c.simSvc = similarityuc.New(repo, simOpts...)
	return c, nil
}

func (c *clientConfig) validate() error {
	if len(c.addrs) == 0 {
		return errors.New("peerdex: elasticsearch address required (use WithElasticsearch)")
	}
	// A dense kNN page larger than num_candidates is rejected by the engine.
	pool := similarityrepo.DefaultSettings(c.index).KNNNumCandidates
	if c.maxPageSize < 1 || c.maxPageSize > pool {
		return fmt.Errorf("peerdex: max page size %d outside [1, %d]", c.maxPageSize, pool)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	for _, b := range c.backends {
		if b != nil {
			b.Close()
		}
	}
}

// Ping checks cluster connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, outcomeOf(Page{}, err), err) }()

	if len(c.backends) == 0 {
		return errors.New("peerdex: client not connected")
	}
	if err = c.backends[0].Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// TFIDF returns companies sharing the most informative terms with companyID.
// page is 1-indexed.
func (c *Client) TFIDF(ctx context.Context, companyID int64, page, size int) (Page, error) {
	return c.Similar(ctx, TFIDF, companyID, page, size)
}

// Semantic returns companies in overlapping industries with semantically related descriptions.
func (c *Client) Semantic(ctx context.Context, companyID int64, page, size int) (Page, error) {
	return c.Similar(ctx, Semantic, companyID, page, size)
}

// DenseVector returns the nearest companies by description embedding.
func (c *Client) DenseVector(ctx context.Context, companyID int64, page, size int) (Page, error) {
	return c.Similar(ctx, DenseVector, companyID, page, size)
}

// Similar runs the given strategy. A seed that exists but whose similarity
// query failed yields an empty Page with Degraded set and a nil error.
func (c *Client) Similar(ctx context.Context, s Strategy, companyID int64, page, size int) (_ Page, err error) {
	start := time.Now()
	var out Page
	defer func() { c.obs.observe(string(s), start, outcomeOf(out, err), err) }()

	req, err := request.New(companyID, page, size, c.maxPageSize)
	if err != nil {
		return Page{}, fmt.Errorf("%s similarity: %w", s, err)
	}
	p, err := c.simSvc.Similar(ctx, strategy.Strategy(s), req)
	if err != nil {
		return Page{}, fmt.Errorf("%s similarity: %w", s, err)
	}
	out = pageFromResult(p)
	return out, nil
}

// Status reports whether the company index can be queried. It never fails.
func (c *Client) Status(ctx context.Context) Status {
	start := time.Now()
	report := c.statusSvc.Status(ctx)
	st := statusOK
	if !report.Ready {
		st = statusNotReady
	}
	c.obs.observe("status", start, st, nil)
	return Status{
		Ready:   report.Ready,
		Message: report.Message,
		Stats:   report.Index,
	}
}
