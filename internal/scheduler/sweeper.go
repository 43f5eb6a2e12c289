package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sunbeamhq/sunbeam-bot/internal/domain/port/outbound"
	"github.com/sunbeamhq/sunbeam-bot/internal/observability"
)

// Sweeper periodically flips overdue pending approvals to expired. Lazy
// expiry at validation time stays authoritative; the sweep only keeps the
// store and the channel history from accumulating stale pending cards.
type Sweeper struct {
	repo     outbound.ApprovalRepository
	logger   *slog.Logger
	metrics  *observability.Metrics
	schedule cron.Schedule
}

// NewSweeper creates a Sweeper from a five-field cron expression.
func NewSweeper(repo outbound.ApprovalRepository, logger *slog.Logger, metrics *observability.Metrics, spec string) (*Sweeper, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{
		repo:     repo,
		logger:   logger,
		metrics:  metrics,
		schedule: schedule,
	}, nil
}

// Run blocks until ctx is cancelled, sweeping on the configured schedule.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired overdue approvals", "count", n)
		s.metrics.RecordSwept(n)
	}
}
