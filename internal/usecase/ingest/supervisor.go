package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
	"github.com/kailas-cloud/peerdex/internal/metrics"
)

// Supervisor runs ingestion in the background and exposes its state.
// At most one run is active at a time; a finished run may be restarted.
type Supervisor struct {
	runner Runner
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	snap     ingest.Snapshot
	progress *Progress
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSupervisor creates a supervisor in the not_started state.
func NewSupervisor(r Runner, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Supervisor{
		runner: r,
		logger: logger,
		now:    time.Now,
		snap:   ingest.Snapshot{State: ingest.NotStarted},
	}
	setStateGauge(ingest.NotStarted)
	return s
}

// Start launches a run. The run stops when ctx is cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ingest.CanTransition(s.snap.State, ingest.Running) {
		return "", fmt.Errorf("%w: run %s", domain.ErrIngestRunning, s.snap.RunID)
	}

	runID := uuid.NewString()
	started := s.now()
	runCtx, cancel := context.WithCancel(ctx)

	s.snap = ingest.Snapshot{RunID: runID, State: ingest.Running, StartedAt: &started}
	s.progress = &Progress{}
	s.cancel = cancel
	s.done = make(chan struct{})
	setStateGauge(ingest.Running)

	go s.run(runCtx, runID, s.progress, s.done)

	s.logger.Info("Ingestion started", zap.String("run_id", runID))
	return runID, nil
}

func (s *Supervisor) run(ctx context.Context, runID string, progress *Progress, done chan struct{}) {
	defer close(done)

	var (
		out Outcome
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("ingestion panic: %v", r)
			}
		}()
		out, err = s.runner.Run(ctx, progress)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	finished := s.now()
	s.snap.FinishedAt = &finished
	s.snap.Counters = progress.Counters()
	s.snap.IndexExisted = out.IndexExisted

	if err != nil {
		s.snap.State = ingest.Failed
		s.snap.Error = err.Error()
		s.logger.Error("Ingestion failed", zap.String("run_id", runID), zap.Error(err))
	} else {
		s.snap.State = ingest.Done
		s.logger.Info("Ingestion finished",
			zap.String("run_id", runID),
			zap.Bool("index_existed", out.IndexExisted),
			zap.Int64("indexed", s.snap.Counters.Indexed),
			zap.Int64("failed", s.snap.Counters.Failed),
		)
	}
	setStateGauge(s.snap.State)
	if s.snap.StartedAt != nil {
		metrics.IngestRunDuration.Observe(finished.Sub(*s.snap.StartedAt).Seconds())
	}
}

// Snapshot returns the current state, with live counters while running.
func (s *Supervisor) Snapshot() ingest.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	if snap.State == ingest.Running {
		snap.Counters = s.progress.Counters()
	}
	return snap
}

// Wait blocks until the current run finishes or ctx is done.
func (s *Supervisor) Wait(ctx context.Context) (ingest.Snapshot, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return s.Snapshot(), nil
	}
	select {
	case <-done:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Stop cancels the active run, if any, and waits for it to exit.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	_, err := s.Wait(ctx)
	return err
}

func setStateGauge(current ingest.State) {
	for _, st := range []ingest.State{ingest.NotStarted, ingest.Running, ingest.Done, ingest.Failed} {
		v := 0.0
		if st == current {
			v = 1
		}
		metrics.IngestState.WithLabelValues(string(st)).Set(v)
	}
}
