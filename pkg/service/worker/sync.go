package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/utils/errutil"
	"github.com/secmon-lab/anzen/pkg/utils/logging"
)

// Syncer pushes the session ledger to its mirror
type Syncer interface {
	Sync(ctx context.Context) (*model.SyncResult, error)
	// Conflicted reports whether the last push conflicted and no later push
	// or pull resolved it
	Conflicted() bool
}

// SyncWorker periodically pushes the ledger so that writes accepted while the
// mirror was unavailable eventually reach it.
//
// Architecture assumptions:
// - Single server instance per ledger file
// - A conflict needs an operator decision (pull or overwrite), so the worker
//   pauses after one and resumes once a manual sync or pull resolved it
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu     sync.Mutex
	last   *model.SyncResult
	paused bool
}

// NewSyncWorker creates a new worker pushing every interval
func NewSyncWorker(syncer Syncer, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		syncer:   syncer,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. It does not block server startup.
func (w *SyncWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("sync interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Sync worker starting", "interval", w.interval.String())
	go w.run(ctx)
	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SyncWorker) Stop() {
	logging.Default().Info("Sync worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Sync worker stopped")
}

// Last returns the outcome of the most recent push, or nil before the first one
func (w *SyncWorker) Last() *model.SyncResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Paused reports whether the worker stopped pushing after a conflict
func (w *SyncWorker) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if w.Paused() {
				if w.syncer.Conflicted() {
					continue
				}
				w.resume()
			}
			w.push(ctx)

		case <-w.stopCh:
			logging.Default().Info("Sync worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Sync worker context cancelled")
			return
		}
	}
}

func (w *SyncWorker) resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
	logging.Default().Info("Sync conflict resolved, resuming periodic sync")
}

// push performs a single sync cycle
func (w *SyncWorker) push(ctx context.Context) {
	result, err := w.syncer.Sync(ctx)
	if err != nil {
		_ = errutil.Handle(ctx, err, "Periodic sync failed (will retry next interval)")
		return
	}

	w.mu.Lock()
	w.last = result
	if result.State == types.SyncStateConflicted {
		w.paused = true
	}
	w.mu.Unlock()

	switch result.State {
	case types.SyncStateConflicted:
		logging.Default().Error("Periodic sync conflicted, pausing until resolved",
			"path", result.Path,
			"base", result.Previous,
			"remote", result.Current,
		)
	case types.SyncStateUnavailable:
		logging.Default().Warn("Mirror unavailable (will retry next interval)",
			"path", result.Path,
			"attempts", result.Attempts,
		)
	default:
		logging.Default().Debug("Periodic sync completed",
			"state", result.State,
			"version", result.Current,
		)
	}
}
