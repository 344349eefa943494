package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
)

// StalenessSweep marks idle Completed branches Stale on a timer. It is a
// cooperative background loop with a stop signal; it never holds the
// repository fetch lock while sleeping, and shutdown interrupts the next
// idle wait promptly.
type StalenessSweep struct {
	tracker  *git.Tracker
	interval time.Duration
	maxIdle  time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStalenessSweep creates a StalenessSweep.
func NewStalenessSweep(tracker *git.Tracker, interval, maxIdle time.Duration, logger *slog.Logger) *StalenessSweep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StalenessSweep{
		tracker:  tracker,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger,
	}
}

// Start begins sweeping in a background goroutine.
func (s *StalenessSweep) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	s.logger.Info("staleness sweep started",
		slog.Duration("interval", s.interval),
		slog.Duration("max_idle", s.maxIdle),
	)
}

// Stop cancels the loop and waits for it to exit.
func (s *StalenessSweep) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("staleness sweep stopped")
}

func (s *StalenessSweep) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StalenessSweep) sweep(ctx context.Context) {
	swept, err := s.tracker.SweepStale(ctx, time.Now().UTC(), s.maxIdle)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("staleness sweep failed", slog.String("error", err.Error()))
		return
	}
	if swept > 0 {
		s.logger.Info("branches marked stale", slog.Int("count", swept))
	}
}
