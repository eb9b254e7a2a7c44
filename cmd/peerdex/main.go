package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/config"
	dbElastic "github.com/kailas-cloud/peerdex/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/peerdex/internal/db/redis"
	"github.com/kailas-cloud/peerdex/internal/domain"
	logpkg "github.com/kailas-cloud/peerdex/internal/logger"
	"github.com/kailas-cloud/peerdex/internal/metrics"
	"github.com/kailas-cloud/peerdex/internal/repository/companycsv"
	"github.com/kailas-cloud/peerdex/internal/repository/companyindex"
	"github.com/kailas-cloud/peerdex/internal/repository/embcache"
	"github.com/kailas-cloud/peerdex/internal/repository/simcache"
	similarityrepo "github.com/kailas-cloud/peerdex/internal/repository/similarity"
	chiTransport "github.com/kailas-cloud/peerdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/peerdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/peerdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/peerdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/peerdex/internal/usecase/ingest"
	similarityuc "github.com/kailas-cloud/peerdex/internal/usecase/similarity"
	statusuc "github.com/kailas-cloud/peerdex/internal/usecase/status"
	"github.com/kailas-cloud/peerdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting peerdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addrs", cfg.Elasticsearch.Addrs),
		zap.String("index", cfg.Elasticsearch.Index),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("ingest", cfg.Ingest.Enabled),
	)

	store, err := dbElastic.NewStore(dbElastic.Config{
		Addrs:              cfg.Elasticsearch.Addrs,
		Username:           cfg.Elasticsearch.Username,
		Password:           cfg.Elasticsearch.Password,
		CACertPath:         cfg.Elasticsearch.CACertPath,
		InsecureSkipVerify: cfg.Elasticsearch.InsecureSkipVerify,
		RequestTimeout:     time.Duration(cfg.Elasticsearch.RequestTimeoutSec) * time.Second,
		StatusAttempts:     cfg.Elasticsearch.StatusAttempts,
	})
	if err != nil {
		logger.Fatal("Failed to create search store", zap.Error(err))
	}
	defer store.Close()

	// The API starts even when the cluster is down; /status reports not ready until it answers.
	ctx := context.Background()
	readiness := time.Duration(cfg.Elasticsearch.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Warn("Search cluster not ready, continuing", zap.Error(err))
	} else {
		logger.Info("Connected to search cluster")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterSimilarityMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	// Optional result cache. A nil *Store must never reach an interface.
	var cacheStore *dbRedis.Store
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			logger.Warn("Cache not ready, continuing", zap.Error(err))
		}
		cachePinger = cacheStore
	}

	// Similarity
	simRepo := similarityrepo.New(store, similarityrepo.Settings{
		Index:               cfg.Elasticsearch.Index,
		SeedField:           cfg.Similarity.SeedField,
		MLTMinTermFreq:      cfg.Similarity.MLTMinTermFreq,
		MLTMaxQueryTerms:    cfg.Similarity.MLTMaxQueryTerms,
		IndustriesBoost:     cfg.Similarity.IndustriesBoost,
		SemanticBoost:       cfg.Similarity.SemanticBoost,
		KNNNumCandidates:    cfg.Similarity.KNNNumCandidates,
		ExcludeSourceFields: cfg.Similarity.ExcludeSourceFields,
	})
	simOpts := []similarityuc.Option{similarityuc.WithLogger(logger)}
	if cacheStore != nil {
		pageCache := simcache.New(
			cacheStore, cfg.Elasticsearch.Index,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.SimilarityCacheTotal, logger,
		)
		simOpts = append(simOpts, similarityuc.WithCache(pageCache))
	}
	simSvc := similarityuc.New(simRepo, simOpts...)

	// Background ingestion
	var supervisor *ingestuc.Supervisor
	var ingestion statusuc.IngestionReader
	var embeddingChecker healthuc.EmbeddingChecker
	if cfg.Ingest.Enabled {
		embedder := buildEmbedder(cfg, cacheStore, logger)
		pipeline, err := buildPipeline(cfg, store, embedder, logger)
		if err != nil {
			logger.Fatal("Failed to create ingestion pipeline", zap.Error(err))
		}
		defer pipeline.Release()

		supervisor = ingestuc.NewSupervisor(pipeline, logger)
		ingestion = supervisor
		embeddingChecker = newEmbeddingHealthChecker(embedder)

		runID, err := supervisor.Start(ctx)
		if err != nil {
			logger.Fatal("Failed to start ingestion", zap.Error(err))
		}
		logger.Info("Ingestion started", zap.String("run_id", runID))
	}

	statusSvc := statusuc.New(store, cfg.Elasticsearch.Index, ingestion, logger)
	healthSvc := healthuc.New(store, cachePinger, embeddingChecker)

	// Create chi server
	server := chiTransport.NewServer(simSvc, statusSvc, healthSvc, chiTransport.Settings{
		DefaultPageSize: cfg.Similarity.DefaultPageSize,
		MaxPageSize:     cfg.Similarity.MaxPageSize,
		StrictErrors:    cfg.Similarity.StrictErrors,
	}, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseURL:          cfg.HTTP.BasePath,
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.ParamErrorHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr), zap.String("base_path", cfg.HTTP.BasePath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if supervisor != nil {
		if err := supervisor.Stop(shutdownCtx); err != nil {
			logger.Error("Ingestion did not stop in time", zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.Config, cacheStore *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	emb := cfg.Embedding

	// Base provider (with transport metrics built-in)
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})

	// Cached
	if cacheStore != nil {
		embedder = embcache.New(embedder, cacheStore, metrics.EmbeddingCacheTotal, logger,
			embcache.WithModel(emb.Model))
	}

	// Instrumented (throttle + logging)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, emb.Provider, emb.Model, embeddinguc.NewLimiter(emb.RequestsPerSecond), logger,
	)

	// Instruction prefix (outermost, cache key includes instruction)
	if emb.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, emb.DocumentInstruction)
	}

	return embedder
}

func buildPipeline(
	cfg config.Config, store *dbElastic.Store, embedder domain.Embedder, logger *zap.Logger,
) (*ingestuc.Pipeline, error) {
	source := companycsv.New(
		cfg.Ingest.DataDir,
		cfg.Ingest.CompaniesFile,
		cfg.Ingest.IndustriesFile,
		cfg.Ingest.SpecialitiesFile,
		logger,
	)
	index := companyindex.New(store, cfg.Elasticsearch.Index, cfg.Embedding.Dimensions, cfg.Ingest.InferenceID)

	return ingestuc.NewPipeline(source, index, embedder,
		ingestuc.WithWorkers(cfg.Ingest.Workers),
		ingestuc.WithBatchSize(cfg.Ingest.BatchSize),
		ingestuc.WithLogger(logger),
	)
}
