package usecase

import (
	"context"
	"log/slog"
	"time"
)

const sweeperLockKey = "recovery:challenge-sweeper"

// RunChallengeSweeper periodically deletes expired challenge rows. Expired
// rows are already inert for lookups; this keeps the table from growing
// without bound. It blocks until ctx is canceled.
func (s *Usecase) RunChallengeSweeper(ctx context.Context) error {
	interval := s.cfg.GetMinute("modules.recovery.sweep_interval_minutes")
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

func (s *Usecase) sweepExpired(ctx context.Context) {
	ctx, span := s.startSpan(ctx, "SweepExpiredChallenges")
	defer span.End()

	// The distributed lock keeps multi-instance deployments from sweeping
	// concurrently; losing the race is not an error.
	err := s.idemp.Exec(ctx, sweeperLockKey, func(ctx context.Context) error {
		deleted, err := s.repoDB.DeleteExpiredChallenges(ctx, s.clock.Now())
		if err != nil {
			return err
		}

		if deleted > 0 {
			slog.InfoContext(ctx, "swept expired recovery challenges", "deleted", deleted)
		}

		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "challenge sweep skipped", "error", err)
	}
}
