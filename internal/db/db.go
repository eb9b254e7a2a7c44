package db

import (
	"context"
	"encoding/json"
	"time"
)

// SearchStore is the search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type SearchStore interface {
	Pinger
	IndexManager
	Searcher
	BulkWriter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// CacheStore is the key-value facade used for caches.
type CacheStore interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// IndexManager provides index lifecycle and introspection operations.
type IndexManager interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, m *IndexMapping) error
	DeleteIndex(ctx context.Context, name string) error
	IndexStats(ctx context.Context, name string) (json.RawMessage, error)
}

// Searcher executes read queries against an index.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	SearchKNN(ctx context.Context, req *KNNRequest) (*SearchResult, error)
}

// BulkWriter streams documents into an index.
type BulkWriter interface {
	BulkIndex(ctx context.Context, index string, docs []BulkDocument) (BulkStats, error)
}
