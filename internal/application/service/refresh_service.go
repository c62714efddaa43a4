package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher performs one full fetch-and-cache cycle, returning the number of
// tokens written.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshScheduler keeps the cache warm independently of client traffic. It
// runs one refresh immediately on Start, then repeats on a fixed interval
// until Stop. A failed run is logged; the next tick always fires.
type RefreshScheduler struct {
	refresher  Refresher
	interval   time.Duration
	runTimeout time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewRefreshScheduler(refresher Refresher, interval time.Duration, logger *zap.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = 14 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshScheduler{
		refresher:  refresher,
		interval:   interval,
		runTimeout: interval,
		logger:     logger,
	}
}

// Start launches the refresh loop. Calling Start while running is a no-op.
func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("refresh scheduler already running")
		return
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info("refresh scheduler starting", zap.Duration("interval", s.interval))
	go s.loop(done)
}

// Stop halts the loop. Calling Stop while stopped is a no-op.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.done)
	s.logger.Info("refresh scheduler stopped")
}

// TriggerOnce runs an out-of-band refresh through the same path as a
// scheduled tick and returns the resulting token count.
func (s *RefreshScheduler) TriggerOnce(ctx context.Context) (int, error) {
	return s.refresher.Refresh(ctx)
}

// Status reports whether the loop is running and its configured interval.
func (s *RefreshScheduler) Status() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.interval
}

func (s *RefreshScheduler) loop(done <-chan struct{}) {
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *RefreshScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	start := time.Now()
	count, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("scheduled refresh complete", zap.Int("tokens", count), zap.Duration("elapsed", time.Since(start)))
}
