package scheduler

import (
	"context"
	"log/slog"
	"time"

	"content_scanner/internal/domain"
)

// Scanner is the orchestration entry point the scheduler drives.
type Scanner interface {
	RunScan(ctx context.Context, totalBudget int) *domain.ScanResult
}

type Scheduler struct {
	scanner  Scanner
	interval time.Duration
	budget   int
	logger   *slog.Logger
}

func NewScheduler(scanner Scanner, interval time.Duration, budget int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		budget:   budget,
		logger:   logger,
	}
}

// Start runs one scan immediately, then one per interval until the context
// is cancelled. Scan outcomes are logged; a failing scan never stops the
// schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "budget", s.budget)

	s.runScan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

func (s *Scheduler) runScan(ctx context.Context) {
	result := s.scanner.RunScan(ctx, s.budget)
	if !result.Success {
		s.logger.Warn("scan finished with source errors",
			"scan_id", result.ScanID,
			"errors", result.AllErrors(),
		)
	}
}
