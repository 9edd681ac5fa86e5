package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/risinghq/bmsauth/internal/auth/store"
)

// HousekeepingService periodically garbage-collects refresh and reset
// token records whose expiry plus the retention window has passed.
// Terminal records are kept for the retention window as audit lineage;
// only after that do they get deleted.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. Zero or negative
// interval defaults to 1 hour; zero or negative retention defaults to 30
// days past expiry.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down, blocking until any in-progress cleanup
// finishes.
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
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup deletes records past their retention cutoff. Each deletion is
// independent so one failure does not stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.Retention)

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	if err := s.Store.ResetTokens().DeleteExpiredResetTokens(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired reset tokens", "error", err)
	}

	s.Logger.Debug("housekeeping cleanup completed", "cutoff", cutoff)
}
