package status

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/peerdex/internal/db"
	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
)

type mockStats struct {
	raw   json.RawMessage
	err   error
	index string
}

func (m *mockStats) IndexStats(_ context.Context, name string) (json.RawMessage, error) {
	m.index = name
	return m.raw, m.err
}

type mockIngestion struct {
	snap ingest.Snapshot
}

func (m *mockIngestion) Snapshot() ingest.Snapshot { return m.snap }

func TestStatus_Ready(t *testing.T) {
	stats := &mockStats{raw: json.RawMessage(`{"_all":{"primaries":{"docs":{"count":3}}}}`)}
	r := New(stats, "companies", nil, nil).Status(context.Background())

	if !r.Ready || r.Message != "" {
		t.Fatalf("report = %+v", r)
	}
	if string(r.Index) != string(stats.raw) {
		t.Errorf("index stats = %s", r.Index)
	}
	if stats.index != "companies" {
		t.Errorf("queried index = %q", stats.index)
	}
	if r.Ingestion != nil {
		t.Error("ingestion should be absent when no supervisor is wired")
	}
}

func TestStatus_MissingIndexIsPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", db.ErrIndexNotFound},
		{"transport", &db.Error{Op: db.OpIndexStats, Err: errors.New("conn refused")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&mockStats{err: tc.err}, "companies", nil, nil).Status(context.Background())
			if r.Ready {
				t.Error("should not be ready")
			}
			if r.Message != NotReadyMessage {
				t.Errorf("message = %q", r.Message)
			}
			if r.Index != nil {
				t.Errorf("index = %s, want nil", r.Index)
			}
		})
	}
}

func TestStatus_IncludesIngestion(t *testing.T) {
	ing := &mockIngestion{snap: ingest.Snapshot{RunID: "r1", State: ingest.Running}}
	r := New(&mockStats{err: db.ErrIndexNotFound}, "companies", ing, nil).Status(context.Background())

	if r.Ingestion == nil || r.Ingestion.State != ingest.Running || r.Ingestion.RunID != "r1" {
		t.Fatalf("ingestion = %+v", r.Ingestion)
	}
}
