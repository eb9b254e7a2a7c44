package elastic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/kailas-cloud/peerdex/internal/db"
)

const bulkFlushBytes = 5 << 20

// BulkIndex writes documents with explicit ids through the bulk API.
// Per-document rejections are counted in BulkStats.Failed; an error is returned
// only when the run could not proceed or nothing was indexed.
func (s *Store) BulkIndex(ctx context.Context, index string, docs []db.BulkDocument) (db.BulkStats, error) {
	if len(docs) == 0 {
		return db.BulkStats{}, nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     s.client,
		Index:      index,
		NumWorkers: 1,
		FlushBytes: bulkFlushBytes,
		Timeout:    s.requestTimeout,
	})
	if err != nil {
		return db.BulkStats{}, &db.Error{Op: db.OpBulk, Err: err}
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	onFailure := func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr != nil {
			return
		}
		if err != nil {
			firstErr = fmt.Errorf("document %s: %w", item.DocumentID, err)
			return
		}
		firstErr = fmt.Errorf("document %s: %s: %s", item.DocumentID, res.Error.Type, res.Error.Reason)
	}

	for _, d := range docs {
		addErr := bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: d.ID,
			Body:       bytes.NewReader(d.Body),
			OnFailure:  onFailure,
		})
		if addErr != nil {
			_ = bi.Close(context.WithoutCancel(ctx))
			return statsOf(bi), &db.Error{Op: db.OpBulk, Err: addErr}
		}
	}

	if err := bi.Close(ctx); err != nil {
		return statsOf(bi), &db.Error{Op: db.OpBulk, Err: err}
	}

	stats := statsOf(bi)
	if stats.Indexed == 0 && stats.Failed > 0 {
		mu.Lock()
		defer mu.Unlock()
		return stats, &db.Error{Op: db.OpBulk, Err: errors.Join(errors.New("no documents indexed"), firstErr)}
	}
	return stats, nil
}

func statsOf(bi esutil.BulkIndexer) db.BulkStats {
	st := bi.Stats()
	return db.BulkStats{Indexed: st.NumIndexed, Failed: st.NumFailed}
}
