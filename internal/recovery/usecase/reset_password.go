package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/recovery/entity"
)

type ResetPasswordInput struct {
	Email       string `validate:"required,email"`
	NewPassword string `validate:"required,password"`
	ResetTicket string `validate:"required"`
}

// ResetPassword replaces the account password. It only succeeds while the
// continuation ticket from VerifyCode is live, and consumes that ticket.
func (s *Usecase) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx, span := s.startSpan(ctx, "ResetPassword")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	finalRes, err := s.limiters.ResetFinal.Consume(ctx, in.Email, 1)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume reset budget", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
	if !finalRes.Allowed {
		slog.WarnContext(ctx, "password reset throttled", "email", in.Email)
		return goerror.NewRateLimited("Too many reset attempts. Please try again later.", finalRes.RetryAfter)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset for unavailable user", "email", in.Email)
		return goerror.NewBusiness("Unable to reset password", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	chal, err := s.repoDB.GetValidChallenge(ctx, user.ID, entity.ChallengePurposeReset, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Invalid or expired reset session", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get reset ticket challenge", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if !s.hmac.Verify(chal.Token, in.ResetTicket) {
		slog.WarnContext(ctx, "reset ticket mismatch", "user_id", user.ID)
		return goerror.NewBusiness("Invalid or expired reset session", goerror.CodeUnauthorized)
	}

	// Single use: whoever consumes the ticket row wins, everyone else is
	// turned away.
	consumed, err := s.repoDB.ConsumeChallenge(ctx, chal.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume reset ticket challenge", "challenge_id", chal.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !consumed {
		return goerror.NewBusiness("Invalid or expired reset session", goerror.CodeUnauthorized)
	}

	pwdHash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.UpsertCredential(ctx, user.ID, string(pwdHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert credential", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.goroutine.Go(ctx, func(ctx context.Context) error {
		if err := s.repoMessaging.PublishPasswordChanged(ctx, PasswordChangedEvent{
			UserID: user.ID,
			Email:  user.Email,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish password changed", "user_id", user.ID, "error", err)
		}

		if err := s.mailer.SendPasswordChanged(ctx, user.Email); err != nil {
			slog.ErrorContext(ctx, "failed to send password changed email", "user_id", user.ID, "error", err)
		}

		return nil
	})

	return nil
}
