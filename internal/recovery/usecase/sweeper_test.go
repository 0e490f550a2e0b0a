package usecase

import (
	"context"
	"testing"
	"time"
)

func TestSweepExpired(t *testing.T) {
	// Arrange
	var swept time.Time
	repo := &mockRepoDB{
		deleteExpiredChallenges: func(_ context.Context, now time.Time) (int64, error) {
			swept = now
			return 3, nil
		},
	}
	deps := &testDeps{repo: repo}
	uc := newTestUsecase(t, deps)

	// Act
	uc.sweepExpired(context.Background())

	// Assert
	if !swept.Equal(deps.clock.Now()) {
		t.Fatalf("expected sweep cutoff %v, got %v", deps.clock.Now(), swept)
	}
}

func TestRunChallengeSweeperStopsOnCancel(t *testing.T) {
	// Arrange
	uc := newTestUsecase(t, &testDeps{repo: &mockRepoDB{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// Act
	go func() { done <- uc.RunChallengeSweeper(ctx) }()
	cancel()

	// Assert
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
