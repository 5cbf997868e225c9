package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

// DefaultBackupCodeRetention is how long a consumed backup code is kept for
// audit before housekeeping removes it.
const DefaultBackupCodeRetention = 30 * 24 * time.Hour

// HousekeepingService periodically prunes identity store rows that are no
// longer needed. Secret store entries expire on their own TTLs.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: DefaultBackupCodeRetention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
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
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup removes backup codes consumed longer than Retention ago. It returns
// the number of rows deleted.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.retention())

	n, err := s.Store.BackupCodes().DeleteUsedBackupCodes(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete used backup codes", "error", err)
		return 0
	}
	s.Logger.Info("housekeeping cleanup completed", "used_backup_codes_deleted", n, "cutoff", cutoff)
	return n
}

func (s *HousekeepingService) retention() time.Duration {
	if s.Retention > 0 {
		return s.Retention
	}
	return DefaultBackupCodeRetention
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
