package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tetris-scores/internal/config"
)

// bestScoreSource provides the authoritative per-player best scores.
type bestScoreSource interface {
	BestScores(ctx context.Context) (map[string]float64, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// boardRebuilder replaces the cached high-score board wholesale.
type boardRebuilder interface {
	Rebuild(ctx context.Context, best map[string]float64) error
}

// RebuildWorker periodically rebuilds the Redis high-score board from
// PostgreSQL. The cache drifts when scores are deleted or Redis writes fail
// during submission; a full rebuild from the durable store corrects it.
type RebuildWorker struct {
	store   bestScoreSource
	board   boardRebuilder
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRebuildWorker creates a new rebuild worker
func NewRebuildWorker(
	store bestScoreSource,
	board boardRebuilder,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *RebuildWorker {
	return &RebuildWorker{
		store:  store,
		board:  board,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background rebuild process
func (w *RebuildWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("rebuild worker started",
		"interval", w.config.Interval,
		"retention", w.config.Retention,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background rebuild process
func (w *RebuildWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("rebuild worker stopped")
	return nil
}

// run is the main worker loop
func (w *RebuildWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle runs one retention-then-rebuild pass
func (w *RebuildWorker) cycle(ctx context.Context) {
	w.logger.Info("starting rebuild cycle")
	startTime := time.Now()

	if w.config.Retention > 0 {
		cutoff := time.Now().Add(-w.config.Retention)
		pruned, err := w.store.PruneOlderThan(ctx, cutoff)
		if err != nil {
			w.logger.Error("failed to prune old scores", "error", err)
		} else if pruned > 0 {
			w.logger.Info("pruned old scores", "count", pruned, "cutoff", cutoff)
		}
	}

	if err := w.RebuildOnce(ctx); err != nil {
		w.logger.Error("failed to rebuild board", "error", err)
		return
	}

	w.logger.Info("rebuild cycle completed", "duration", time.Since(startTime))
}

// RebuildOnce rebuilds the cached board from the durable store. Also used at
// startup so the board is populated before the first request.
func (w *RebuildWorker) RebuildOnce(ctx context.Context) error {
	best, err := w.store.BestScores(ctx)
	if err != nil {
		return err
	}

	if err := w.board.Rebuild(ctx, best); err != nil {
		return err
	}

	w.logger.Debug("rebuilt high-score board", "player_count", len(best))
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *RebuildWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
