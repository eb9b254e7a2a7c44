package ingest

import (
	"sync/atomic"

	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

// Progress holds live counters shared between a running pipeline and status readers.
type Progress struct {
	companies atomic.Int64
	embedded  atomic.Int64
	indexed   atomic.Int64
	failed    atomic.Int64
}

// Counters returns a consistent-enough copy for reporting.
func (p *Progress) Counters() ingest.Counters {
	if p == nil {
		return ingest.Counters{}
	}
	return ingest.Counters{
		Companies: p.companies.Load(),
		Embedded:  p.embedded.Load(),
		Indexed:   p.indexed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	// IndexExisted is set when the run did nothing because the index was already there.
	IndexExisted bool            `json:"index_existed"`
	Counters     ingest.Counters `json:"counters"`
}
