// Package simcache stores successful similarity pages in a key-value store.
package simcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

const keyPrefix = "peerdex:sim:"

// store is the consumer interface for the page cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a read-through cache for similarity pages.
// Failed pages are never stored.
type Cache struct {
	store      store
	index      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a page cache scoped to one index.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func New(s store, index string, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, index: index, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

type pageDTO struct {
	Strategy string       `json:"strategy"`
	Total    int64        `json:"total"`
	Relation string       `json:"relation"`
	MaxScore *float64     `json:"max_score"`
	Hits     []result.Hit `json:"hits"`
}

// Get returns a cached page. Store errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, s strategy.Strategy, req request.Request) (result.Page, bool) {
	key := c.key(s, req)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached page", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return result.Page{}, false
	}

	var dto pageDTO
	if err := json.Unmarshal(data, &dto); err != nil || dto.Strategy != string(s) {
		c.logger.Warn("Discarding malformed cached page", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return result.Page{}, false
	}

	c.inc("hit")
	return result.New(s, dto.Total, dto.MaxScore, dto.Hits).WithRelation(dto.Relation), true
}

// Put stores a successful page. Failed pages are ignored.
func (c *Cache) Put(ctx context.Context, req request.Request, p result.Page) {
	if p.Failed() {
		return
	}
	data, err := json.Marshal(pageDTO{
		Strategy: string(p.Strategy()),
		Total:    p.Total(),
		Relation: p.Relation(),
		MaxScore: p.MaxScore(),
		Hits:     p.Hits(),
	})
	if err != nil {
		c.logger.Warn("Failed to encode page", zap.Error(err))
		return
	}
	key := c.key(p.Strategy(), req)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) key(s strategy.Strategy, req request.Request) string {
	return fmt.Sprintf("%s%s:%s:%d:%d:%d", keyPrefix, c.index, s, req.CompanyID(), req.Page(), req.Size())
}

func (c *Cache) inc(outcome string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(outcome).Inc()
	}
}
