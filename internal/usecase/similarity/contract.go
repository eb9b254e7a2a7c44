package similarity

import (
	"context"

	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/query"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
)

// Repository resolves seeds and executes strategy queries against the index.
type Repository interface {
	ResolveSeed(ctx context.Context, companyID int64, s strategy.Strategy) (company.Document, error)
	// Execute returns a failed page plus an error when the index call fails.
	Execute(ctx context.Context, q query.Query) (result.Page, error)
}

// PageCache stores successful result pages.
type PageCache interface {
	Get(ctx context.Context, s strategy.Strategy, req request.Request) (result.Page, bool)
	Put(ctx context.Context, req request.Request, p result.Page)
}
