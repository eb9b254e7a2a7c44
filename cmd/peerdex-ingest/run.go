package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/config"
	dbElastic "github.com/kailas-cloud/peerdex/internal/db/elastic"
	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/metrics"
	"github.com/kailas-cloud/peerdex/internal/repository/companycsv"
	"github.com/kailas-cloud/peerdex/internal/repository/companyindex"
	openaiEmb "github.com/kailas-cloud/peerdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/peerdex/internal/usecase/embedding"
	ingestuc "github.com/kailas-cloud/peerdex/internal/usecase/ingest"
)

type runOptions struct {
	*globalOptions
	dataDir   string
	workers   int
	batchSize int
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create and populate the company index",
		Long: `Create the company index and populate it from the CSV exports.

The command exits without changes when the index already exists.
Interrupting the command stops dispatching new batches; batches in flight finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the CSV exports (overrides ingest.data_dir)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent embedding batches (overrides ingest.workers)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Companies per batch (overrides ingest.batch_size)")
	return cmd
}

// apply overlays non-zero flags on the loaded config.
func (o *runOptions) apply(cfg *config.Config) {
	if o.dataDir != "" {
		cfg.Ingest.DataDir = o.dataDir
	}
	if o.workers > 0 {
		cfg.Ingest.Workers = o.workers
	}
	if o.batchSize > 0 {
		cfg.Ingest.BatchSize = o.batchSize
	}
}

func (o *runOptions) run(ctx context.Context, out io.Writer) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	o.apply(&cfg)
	if cfg.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required to ingest")
	}

	logger, err := o.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create search store: %w", err)
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Elasticsearch.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("search cluster not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	pipeline, err := newPipeline(cfg, store, logger)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	start := time.Now()
	progress := &ingestuc.Progress{}
	outcome, err := pipeline.Run(ctx, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}

	if o.output == "json" {
		return printJSON(out, outcome)
	}
	if outcome.IndexExisted {
		_, err = fmt.Fprintf(out, "index %q already exists, nothing to do\n", cfg.Elasticsearch.Index)
		return err
	}
	c := outcome.Counters
	_, err = fmt.Fprintf(out, "indexed %d of %d companies into %q (%d failed) in %s\n",
		c.Indexed, c.Companies, cfg.Elasticsearch.Index, c.Failed, time.Since(start).Round(time.Second))
	return err
}

func newPipeline(cfg config.Config, store *dbElastic.Store, logger *zap.Logger) (*ingestuc.Pipeline, error) {
	emb := cfg.Embedding

	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, emb.Provider, emb.Model, embeddinguc.NewLimiter(emb.RequestsPerSecond), logger,
	)
	if emb.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, emb.DocumentInstruction)
	}

	source := companycsv.New(
		cfg.Ingest.DataDir,
		cfg.Ingest.CompaniesFile,
		cfg.Ingest.IndustriesFile,
		cfg.Ingest.SpecialitiesFile,
		logger,
	)
	index := companyindex.New(store, cfg.Elasticsearch.Index, emb.Dimensions, cfg.Ingest.InferenceID)

	pipeline, err := ingestuc.NewPipeline(source, index, embedder,
		ingestuc.WithWorkers(cfg.Ingest.Workers),
		ingestuc.WithBatchSize(cfg.Ingest.BatchSize),
		ingestuc.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return pipeline, nil
}
