package status

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

// StatsReader reads engine statistics for an index.
type StatsReader interface {
	IndexStats(ctx context.Context, name string) (json.RawMessage, error)
}

// IngestionReader exposes the background ingestion state.
type IngestionReader interface {
	Snapshot() ingest.Snapshot
}
