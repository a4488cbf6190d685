package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/srcvote/evote/internal/auth/store"
	"github.com/srcvote/evote/pkg/clock"
)

// HousekeepingService periodically clears expired emailed codes and drops
// denylist entries whose tokens have expired anyway.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Clock    clock.Clocker
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, clk clock.Clocker, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Clock:    clk,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each deletion is independent - failures in one won't stop the others.
func (s *HousekeepingService) cleanup(ctx context.Context) {
	now := nowFrom(s.Clock)

	if n, err := s.Store.Accounts().PurgeExpiredTempOTP(ctx, now); err != nil {
		s.Logger.Error("failed to purge expired email codes", "error", err)
	} else {
		s.Logger.Debug("purged expired email codes", "count", n)
	}

	if n, err := s.Store.LoginChallenges().PurgeExpired(ctx, now); err != nil {
		s.Logger.Error("failed to purge expired login challenges", "error", err)
	} else {
		s.Logger.Debug("purged expired login challenges", "count", n)
	}

	if n, err := s.Store.RevokedTokens().PurgeExpired(ctx, now); err != nil {
		s.Logger.Error("failed to purge expired revocations", "error", err)
	} else {
		s.Logger.Debug("purged expired revocations", "count", n)
	}
}
