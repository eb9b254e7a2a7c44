package status

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

// NotReadyMessage is reported while the index cannot be queried.
const NotReadyMessage = "please wait for the index to be ready"

// Report is the index status. Index holds the engine statistics verbatim when Ready.
type Report struct {
	Ready     bool
	Index     json.RawMessage
	Message   string
	Ingestion *ingest.Snapshot
}

// Service reports index readiness. It never fails: an unqueryable index
// yields the not-ready placeholder.
type Service struct {
	stats     StatsReader
	index     string
	ingestion IngestionReader
	tracer    trace.Tracer
	logger    *zap.Logger
}

// New creates a status service. ingestion may be nil.
func New(stats StatsReader, index string, ingestion IngestionReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stats:     stats,
		index:     index,
		ingestion: ingestion,
		tracer:    otel.Tracer("github.com/kailas-cloud/peerdex/internal/usecase/status"),
		logger:    logger,
	}
}

// Status returns index statistics or the not-ready placeholder.
func (s *Service) Status(ctx context.Context) Report {
	ctx, span := s.tracer.Start(ctx, "status")
	defer span.End()

	var r Report
	if s.ingestion != nil {
		snap := s.ingestion.Snapshot()
		r.Ingestion = &snap
	}

	raw, err := s.stats.IndexStats(ctx, s.index)
	if err != nil {
		if !errors.Is(err, db.ErrIndexNotFound) {
			s.logger.Warn("Index status unavailable", zap.String("index", s.index), zap.Error(err))
		}
		span.SetAttributes(attribute.Bool("ready", false))
		r.Message = NotReadyMessage
		return r
	}

	span.SetAttributes(attribute.Bool("ready", true))
	r.Ready = true
	r.Index = raw
	return r
}
