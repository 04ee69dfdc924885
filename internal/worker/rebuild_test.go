package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tetris-scores/internal/config"
)

type fakeSource struct {
	mu         sync.Mutex
	best       map[string]float64
	bestErr    error
	pruned     []time.Time
	prunedRows int64
}

func (f *fakeSource) BestScores(_ context.Context) (map[string]float64, error) {
	return f.best, f.bestErr
}

func (f *fakeSource) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, cutoff)
	return f.prunedRows, nil
}

type fakeRebuilder struct {
	mu       sync.Mutex
	rebuilds []map[string]float64
	err      error
}

func (f *fakeRebuilder) Rebuild(_ context.Context, best map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds = append(f.rebuilds, best)
	return f.err
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rebuilds)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRebuildOnce(t *testing.T) {
	source := &fakeSource{best: map[string]float64{"ace": 12000, "bee": 9000}}
	board := &fakeRebuilder{}
	w := NewRebuildWorker(source, board, &config.SyncConfig{Interval: time.Hour}, testLogger())

	require.NoError(t, w.RebuildOnce(context.Background()))
	require.Equal(t, 1, board.count())
	require.Equal(t, source.best, board.rebuilds[0])
}

func TestRebuildOnce_SourceFailure(t *testing.T) {
	source := &fakeSource{bestErr: errors.New("connection refused")}
	board := &fakeRebuilder{}
	w := NewRebuildWorker(source, board, &config.SyncConfig{Interval: time.Hour}, testLogger())

	require.Error(t, w.RebuildOnce(context.Background()))
	require.Zero(t, board.count(), "board must not be touched when the source fails")
}

func TestWorker_PeriodicCycle(t *testing.T) {
	source := &fakeSource{best: map[string]float64{"ace": 12000}}
	board := &fakeRebuilder{}
	cfg := &config.SyncConfig{Interval: 20 * time.Millisecond}
	w := NewRebuildWorker(source, board, cfg, testLogger())

	require.NoError(t, w.Start(context.Background()))
	require.True(t, w.IsRunning())

	require.Eventually(t, func() bool { return board.count() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	require.False(t, w.IsRunning())
}

func TestWorker_RetentionPass(t *testing.T) {
	source := &fakeSource{best: map[string]float64{}, prunedRows: 3}
	board := &fakeRebuilder{}
	cfg := &config.SyncConfig{Interval: 20 * time.Millisecond, Retention: 24 * time.Hour}
	w := NewRebuildWorker(source, board, cfg, testLogger())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.pruned) >= 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	source.mu.Lock()
	defer source.mu.Unlock()
	require.WithinDuration(t, time.Now().Add(-24*time.Hour), source.pruned[0], time.Minute)
}

func TestWorker_RetentionDisabledByDefault(t *testing.T) {
	source := &fakeSource{best: map[string]float64{}}
	board := &fakeRebuilder{}
	cfg := &config.SyncConfig{Interval: 20 * time.Millisecond}
	w := NewRebuildWorker(source, board, cfg, testLogger())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool { return board.count() >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	source.mu.Lock()
	defer source.mu.Unlock()
	require.Empty(t, source.pruned)
}

func TestWorker_StartIsIdempotent(t *testing.T) {
	source := &fakeSource{best: map[string]float64{}}
	w := NewRebuildWorker(source, &fakeRebuilder{}, &config.SyncConfig{Interval: time.Hour}, testLogger())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
}
