package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/company"
	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
	"github.com/kailas-cloud/peerdex/internal/metrics"
)

const (
	defaultBatchSize = 500
	logEvery         = 100
	dropTimeout      = 30 * time.Second
)

// Pipeline builds the company index: create mapping, read CSVs, embed, bulk index.
// Batches are embedded and written concurrently on an ants pool.
type Pipeline struct {
	source    Source
	index     Index
	embedder  domain.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkers sets the number of batches processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return fmt.Errorf("worker pool: %w", err)
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many companies are embedded and indexed together.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.batchSize = n
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) error {
		if l != nil {
			p.logger = l
		}
		return nil
	}
}

// NewPipeline creates an ingestion pipeline. Release must be called when done.
func NewPipeline(src Source, idx Index, emb domain.Embedder, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		source:    src,
		index:     idx,
		embedder:  emb,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
	}

	if err := WithWorkers(max(runtime.NumCPU()/2, 1))(p); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release frees the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run executes one ingestion. An existing index short-circuits to an IndexExisted outcome.
func (p *Pipeline) Run(ctx context.Context, progress *Progress) (Outcome, error) {
	if progress == nil {
		progress = &Progress{}
	}

	exists, err := p.index.Exists(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("check index: %w", err)
	}
	if exists {
		p.logger.Info("Index already exists, skipping ingestion")
		return Outcome{IndexExisted: true}, nil
	}

	ds, err := p.source.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load dataset: %w", err)
	}
	if ds.SkippedRows > 0 {
		metrics.IngestRowsTotal.WithLabelValues("skipped").Add(float64(ds.SkippedRows))
	}

	if err := p.index.Create(ctx); err != nil {
		return Outcome{}, err
	}

	outcome, err := p.populate(ctx, ds, progress)
	if err != nil {
		// Later runs skip an existing index, so a partial one must not survive.
		p.dropPartial(ctx, err)
	}
	return outcome, err
}

func (p *Pipeline) populate(ctx context.Context, ds ingest.Dataset, progress *Progress) (Outcome, error) {
	docs := p.buildDocuments(ds, progress)
	p.logger.Info("Dataset loaded",
		zap.Int("companies", len(ds.Companies)),
		zap.Int("documents", len(docs)),
		zap.Int("skipped_rows", ds.SkippedRows),
	)

	if err := p.process(ctx, docs, progress); err != nil {
		return Outcome{Counters: progress.Counters()}, err
	}

	c := progress.Counters()
	if c.Indexed == 0 && c.Failed > 0 {
		return Outcome{Counters: c}, fmt.Errorf("no documents indexed, %d failed", c.Failed)
	}
	return Outcome{Counters: c}, nil
}

// dropPartial deletes the index created by a failed run. It outlives ctx so
// a cancelled run still cleans up.
func (p *Pipeline) dropPartial(ctx context.Context, cause error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dropTimeout)
	defer cancel()

	if err := p.index.Drop(dctx); err != nil {
		p.logger.Error("Failed to drop partial index, delete it before the next run",
			zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	p.logger.Warn("Dropped partial index", zap.NamedError("cause", cause))
}

func (p *Pipeline) buildDocuments(ds ingest.Dataset, progress *Progress) []company.Document {
	docs := make([]company.Document, 0, len(ds.Companies))
	for _, row := range ds.Companies {
		progress.companies.Add(1)
		doc, err := company.New(row.ID, row.Description, ds.Industries[row.ID], ds.Specialities[row.ID])
		if err != nil {
			progress.failed.Add(1)
			metrics.IngestRowsTotal.WithLabelValues("failed").Inc()
			p.logger.Warn("Skipping company", zap.Int64("company_id", row.ID), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// process fans batches out to the pool and waits for all of them.
// Per-batch failures are counted; only cancellation aborts the run.
func (p *Pipeline) process(ctx context.Context, docs []company.Document, progress *Progress) error {
	var wg sync.WaitGroup
	start := time.Now()

	for from := 0; from < len(docs); from += p.batchSize {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}

		batch := docs[from:min(from+p.batchSize, len(docs))]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.processBatch(ctx, batch, progress, start)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("submit batch: %w", err)
		}
	}

	wg.Wait()
	return ctx.Err()
}

func (p *Pipeline) processBatch(ctx context.Context, batch []company.Document, progress *Progress, start time.Time) {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.FullDescription()
	}

	res, err := domain.EmbedBatch(ctx, p.embedder, texts)
	if err != nil {
		p.fail(progress, len(batch), "Embedding batch failed", err)
		return
	}

	embedded := make([]company.Document, len(batch))
	for i, d := range batch {
		embedded[i] = d.WithEmbedding(res.Embeddings[i])
	}
	before := progress.embedded.Load()
	after := progress.embedded.Add(int64(len(batch)))

	indexed, failed, err := p.index.Write(ctx, embedded)
	if err != nil {
		// Documents the writer never reported on are lost with the batch.
		if lost := int64(len(batch)) - indexed - failed; lost > 0 {
			failed += lost
		}
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("Bulk write failed", zap.Int("batch_size", len(batch)), zap.Error(err))
		}
	}
	progress.indexed.Add(indexed)
	progress.failed.Add(failed)
	metrics.IngestRowsTotal.WithLabelValues("indexed").Add(float64(indexed))
	metrics.IngestRowsTotal.WithLabelValues("failed").Add(float64(failed))

	if after/logEvery > before/logEvery {
		p.logger.Info("Ingestion progress",
			zap.Int64("embedded", after),
			zap.Int64("indexed", progress.indexed.Load()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (p *Pipeline) fail(progress *Progress, n int, msg string, err error) {
	progress.failed.Add(int64(n))
	metrics.IngestRowsTotal.WithLabelValues("failed").Add(float64(n))
	p.logger.Warn(msg, zap.Int("batch_size", n), zap.Error(err))
}
