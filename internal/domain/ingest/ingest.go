// Package ingest describes the observable state of the background index build.
package ingest

import "time"

// State is the lifecycle phase of an ingestion run.
type State string

// Ingestion states.
const (
	NotStarted State = "not_started"
	Running    State = "running"
	Done       State = "done"
	Failed     State = "failed"
)

// IsTerminal reports whether no further transitions are expected for the run.
func (s State) IsTerminal() bool {
	return s == Done || s == Failed
}

// CanTransition reports whether from -> to is a legal step.
// A terminal run may be restarted.
func CanTransition(from, to State) bool {
	switch to {
	case Running:
		return from == NotStarted || from.IsTerminal()
	case Done, Failed:
		return from == Running
	default:
		return false
	}
}

// Counters tracks pipeline progress.
type Counters struct {
	Companies int64 `json:"companies"`
	Embedded  int64 `json:"embedded"`
	Indexed   int64 `json:"indexed"`
	Failed    int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of an ingestion run.
type Snapshot struct {
	RunID      string     `json:"run_id,omitempty"`
	State      State      `json:"state"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// IndexExisted is set when the run finished without work because the index was already built.
	IndexExisted bool     `json:"index_existed,omitempty"`
	Counters     Counters `json:"counters"`
	Error        string   `json:"error,omitempty"`
}
