package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"autoorderbot/internal/config"
	"autoorderbot/internal/order"
	"autoorderbot/internal/repository"
)

// Scheduler manages the background jobs: periodic order status sync
// against the panel and expired session sweeping.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	orders   *repository.OrderRepository
	tracker  *order.Tracker
	sessions *order.SessionStore
	logger   *zap.Logger
}

// New creates a new cron scheduler.
func New(
	cfg *config.Config,
	orders *repository.OrderRepository,
	tracker *order.Tracker,
	sessions *order.SessionStore,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		orders:   orders,
		tracker:  tracker,
		sessions: sessions,
		logger:   logger,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	spec := s.cfg.Cron.StatusSyncSpec
	if spec == "" {
		spec = "@every 10m"
	}
	if _, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("Running: order status sync")
		s.statusSync()
	}); err != nil {
		s.logger.Error("Failed to schedule status sync", zap.String("spec", spec), zap.Error(err))
	}

	if _, err := s.cron.AddFunc("@every 5m", func() {
		removed := s.sessions.Sweep()
		if removed > 0 {
			s.logger.Debug("Swept expired sessions", zap.Int("removed", removed))
		}
	}); err != nil {
		s.logger.Error("Failed to schedule session sweep", zap.Error(err))
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// statusSync re-polls a batch of non-terminal orders, oldest poll first.
// Poll failures are logged and skipped so one dead panel order cannot
// starve the rest of the batch.
func (s *Scheduler) statusSync() {
	defer s.recoverFromPanic("statusSync")

	// Orders older than a week stop being re-polled; the panel prunes
	// its own history and queries start returning errors.
	cutoff := time.Now().AddDate(0, 0, -7)

	batch := s.cfg.Cron.StatusSyncBatch
	records, err := s.orders.FindRefreshable(cutoff, batch)
	if err != nil {
		s.logger.Error("Status sync query failed", zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refreshed := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.tracker.Refresh(ctx, record.ID); err != nil {
			s.logger.Debug("Status sync poll failed",
				zap.Uint("order_id", record.ID), zap.Error(err))
			continue
		}
		refreshed++
	}

	s.logger.Info("Order status sync completed",
		zap.Int("candidates", len(records)), zap.Int("refreshed", refreshed))
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
