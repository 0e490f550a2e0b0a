package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/recovery/entity"
)

type VerifyCodeInput struct {
	Email        string `validate:"required,email"`
	Code         string `validate:"required,otp"`
	CaptchaToken string
	RemoteIP     string
}

type VerifyCodeOutput struct {
	// ResetTicket is the single-use continuation credential the client must
	// present to the final reset step.
	ResetTicket string
}

// VerifyCode checks the emailed verification code and, on success, mints the
// continuation ticket that authorizes the actual password reset.
func (s *Usecase) VerifyCode(ctx context.Context, in VerifyCodeInput) (*VerifyCodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyCode")
	defer span.End()

	// The captcha gate sits before everything so bots cannot burn a victim's
	// attempt budget.
	if err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP); err != nil {
		slog.WarnContext(ctx, "captcha rejected on code verification", "error", err)
		return nil, goerror.NewBusiness("Captcha verification failed", goerror.CodeForbidden)
	}

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	attemptRes, err := s.limiters.VerifyAttempt.Peek(ctx, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to peek verification attempts", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !attemptRes.Allowed {
		blockRes, err := s.limiters.RequestBlock.Peek(ctx, in.Email)
		if err != nil {
			slog.ErrorContext(ctx, "failed to peek request block", "email", in.Email, "error", err)
			return nil, goerror.NewServer(err)
		}
		if !blockRes.Allowed {
			return nil, goerror.NewRateLimited("Too many failed attempts. Please try again later.", blockRes.RetryAfter)
		}

		return nil, goerror.NewRateLimited("Too many verification attempts. Please try again later.", attemptRes.RetryAfter)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		if lockErr := s.chargeFailedAttempt(ctx, in.Email); lockErr != nil {
			return nil, lockErr
		}
		return nil, goerror.NewBusiness("Invalid or expired verification code", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	chal, err := s.repoDB.GetValidChallenge(ctx, user.ID, entity.ChallengePurposeOTP, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) {
		if lockErr := s.chargeFailedAttempt(ctx, in.Email); lockErr != nil {
			return nil, lockErr
		}
		return nil, goerror.NewBusiness("Invalid or expired verification code", goerror.CodeBadRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get verification challenge", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !s.hasher.Verify(chal.Token, in.Code) {
		if lockErr := s.chargeFailedAttempt(ctx, in.Email); lockErr != nil {
			return nil, lockErr
		}
		return nil, goerror.NewBusiness("Invalid verification code", goerror.CodeBadRequest)
	}

	// Conditional delete makes the code single use; a concurrent verify that
	// lost the race sees zero rows and fails like any stale code.
	consumed, err := s.repoDB.ConsumeChallenge(ctx, chal.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume verification challenge", "challenge_id", chal.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !consumed {
		return nil, goerror.NewBusiness("Invalid or expired verification code", goerror.CodeBadRequest)
	}

	if err := s.limiters.VerifyAttempt.Reset(ctx, in.Email); err != nil {
		slog.WarnContext(ctx, "failed to reset verification attempts", "email", in.Email, "error", err)
	}

	ticket := s.oid.Generate()
	ticketHash, err := s.hmac.Hash(ticket)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash reset ticket", "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.repoDB.ReplaceChallenge(ctx, entity.Challenge{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		Token:     string(ticketHash),
		Purpose:   entity.ChallengePurposeReset,
		ExpiresAt: s.clock.Now().Add(s.cfg.GetMinute("modules.recovery.ticket_ttl_minutes")),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace reset ticket challenge", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &VerifyCodeOutput{ResetTicket: ticket}, nil
}
