package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/recovery/entity"
)

type RequestCodeInput struct {
	Email string `validate:"required,email"`
}

// RequestCode issues a fresh verification code for a password recovery and
// emails it to the account owner.
func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) error {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	// An open block trumps everything else; peeking keeps the check free of
	// side effects.
	blockRes, err := s.limiters.RequestBlock.Peek(ctx, in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to peek request block", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
	if !blockRes.Allowed {
		slog.WarnContext(ctx, "recovery request while blocked", "email", in.Email)
		return goerror.NewRateLimited("Too many failed attempts. Please try again later.", blockRes.RetryAfter)
	}

	throttleRes, err := s.limiters.RequestThrottle.Consume(ctx, in.Email, 1)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume request throttle", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
	if !throttleRes.Allowed {
		slog.WarnContext(ctx, "recovery request throttled", "email", in.Email)
		return goerror.NewRateLimited("A code was sent recently. Please wait before requesting another.", throttleRes.RetryAfter)
	}

	user, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "recovery requested for unavailable user", "email", in.Email)
		return goerror.NewBusiness("No account found with that email address", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	code, err := s.generateCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "error", err)
		return goerror.NewServer(err)
	}

	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash verification code", "error", err)
		return goerror.NewServer(err)
	}

	ttl := s.cfg.GetMinute("modules.recovery.otp_ttl_minutes")
	if err := s.repoDB.ReplaceChallenge(ctx, entity.Challenge{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		Token:     string(codeHash),
		Purpose:   entity.ChallengePurposeOTP,
		ExpiresAt: s.clock.Now().Add(ttl),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace verification challenge", "user_id", user.ID, "error", err)
		return goerror.NewServer(err)
	}

	// Delivery is synchronous: a caller who never receives the email must
	// see the failure. The stored code stays valid for retries.
	if err := s.mailer.SendOTP(ctx, user.Email, code, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to send verification code email", "user_id", user.ID, "error", err)
		return goerror.NewBusiness("Failed to send the verification email. Please try again.", goerror.CodeInternal)
	}

	return nil
}
