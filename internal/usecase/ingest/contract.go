package ingest

import (
	"context"

	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

// Source loads the raw company exports.
type Source interface {
	Load(ctx context.Context) (ingest.Dataset, error)
}

// Index is the company index being built.
type Index interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context) error
	// Drop removes the index. A missing index is not an error.
	Drop(ctx context.Context) error
	Write(ctx context.Context, docs []company.Document) (indexed, failed int64, err error)
}

// Runner executes one ingestion run, reporting progress as it goes.
type Runner interface {
	Run(ctx context.Context, p *Progress) (Outcome, error)
}
