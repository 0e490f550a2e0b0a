package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/regainhq/regain/internal/pkg/captcha"
	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/recovery/entity"
)

func TestVerifyCode(t *testing.T) {
	// Arrange
	const code = "123456"
	codeHash := mustHashBcrypt(t, code)
	var ticketChallenge entity.Challenge
	consumed := false
	repo := &mockRepoDB{
		getUserByEmail: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: 42, Email: email}, nil
		},
		getValidChallenge: func(_ context.Context, userID int64, p entity.ChallengePurpose, _ time.Time) (*entity.Challenge, error) {
			if p != entity.ChallengePurposeOTP {
				t.Fatalf("expected OTP purpose lookup, got %v", p)
			}
			return &entity.Challenge{ID: 9, UserID: userID, Token: codeHash, Purpose: p}, nil
		},
		consumeChallenge: func(_ context.Context, id int64) (bool, error) {
			if id != 9 {
				t.Fatalf("consumed wrong challenge %d", id)
			}
			consumed = true
			return true, nil
		},
		replaceChallenge: func(_ context.Context, ch entity.Challenge) error {
			ticketChallenge = ch
			return nil
		},
	}
	deps := &testDeps{repo: repo, limiters: newTestLimiters()}
	uc := newTestUsecase(t, deps)

	// Act
	out, err := uc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "jane@example.com",
		Code:  code,
	})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !consumed {
		t.Fatal("code challenge was not consumed")
	}
	if out.ResetTicket == "" {
		t.Fatal("missing reset ticket")
	}
	if ticketChallenge.Purpose != entity.ChallengePurposeReset {
		t.Fatalf("expected reset purpose challenge, got %v", ticketChallenge.Purpose)
	}
	if !testHMAC.Verify(ticketChallenge.Token, out.ResetTicket) {
		t.Fatal("stored ticket hash does not verify against the returned ticket")
	}
	attemptRes, err := deps.limiters.VerifyAttempt.Peek(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("failed to peek attempts: %v", err)
	}
	if attemptRes.Remaining != 3 {
		t.Fatalf("expected attempt budget reset to 3, got %d", attemptRes.Remaining)
	}
}

func TestVerifyCodeCaptchaRejected(t *testing.T) {
	// Arrange
	deps := &testDeps{
		repo:    &mockRepoDB{},
		captcha: &mockCaptcha{err: captcha.ErrFailed},
	}
	uc := newTestUsecase(t, deps)

	// Act
	_, err := uc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "jane@example.com",
		Code:  "123456",
	})

	// Assert
	assertErrCode(t, err, goerror.CodeForbidden)
	attemptRes, perr := deps.limiters.VerifyAttempt.Peek(context.Background(), "jane@example.com")
	if perr != nil {
		t.Fatalf("failed to peek attempts: %v", perr)
	}
	if attemptRes.Remaining != 3 {
		t.Fatalf("captcha rejection must not burn attempts, remaining=%d", attemptRes.Remaining)
	}
}

func TestVerifyCodeWrongCodeCharges(t *testing.T) {
	// Arrange
	codeHash := mustHashBcrypt(t, "123456")
	repo := &mockRepoDB{
		getUserByEmail: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: 42, Email: email}, nil
		},
		getValidChallenge: func(_ context.Context, userID int64, p entity.ChallengePurpose, _ time.Time) (*entity.Challenge, error) {
			return &entity.Challenge{ID: 9, UserID: userID, Token: codeHash, Purpose: p}, nil
		},
	}
	deps := &testDeps{repo: repo, limiters: newTestLimiters()}
	uc := newTestUsecase(t, deps)

	// Act
	_, err := uc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "jane@example.com",
		Code:  "654321",
	})

	// Assert
	gerr := assertErrCode(t, err, goerror.CodeBadRequest)
	if gerr.Msg() != "Invalid verification code" {
		t.Fatalf("unexpected message %q", gerr.Msg())
	}
	attemptRes, perr := deps.limiters.VerifyAttempt.Peek(context.Background(), "jane@example.com")
	if perr != nil {
		t.Fatalf("failed to peek attempts: %v", perr)
	}
	if attemptRes.Remaining != 2 {
		t.Fatalf("expected one attempt burned, remaining=%d", attemptRes.Remaining)
	}
}

func TestVerifyCodeMissingChallengeCharges(t *testing.T) {
	// Arrange
	repo := &mockRepoDB{
		getUserByEmail: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: 42, Email: email}, nil
		},
		getValidChallenge: func(context.Context, int64, entity.ChallengePurpose, time.Time) (*entity.Challenge, error) {
			return nil, goerror.ErrNotFound
		},
	}
	deps := &testDeps{repo: repo, limiters: newTestLimiters()}
	uc := newTestUsecase(t, deps)

	// Act
	_, err := uc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "jane@example.com",
		Code:  "123456",
	})

	// Assert
	assertErrCode(t, err, goerror.CodeBadRequest)
	attemptRes, perr := deps.limiters.VerifyAttempt.Peek(context.Background(), "jane@example.com")
	if perr != nil {
		t.Fatalf("failed to peek attempts: %v", perr)
	}
	if attemptRes.Remaining != 2 {
		t.Fatalf("expected one attempt burned, remaining=%d", attemptRes.Remaining)
	}
}

func TestVerifyCodeLockout(t *testing.T) {
	// Arrange
	codeHash := mustHashBcrypt(t, "123456")
	repo := &mockRepoDB{
		getUserByEmail: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: 42, Email: email}, nil
		},
		getValidChallenge: func(_ context.Context, userID int64, p entity.ChallengePurpose, _ time.Time) (*entity.Challenge, error) {
			return &entity.Challenge{ID: 9, UserID: userID, Token: codeHash, Purpose: p}, nil
		},
	}
	deps := &testDeps{repo: repo, limiters: newTestLimiters()}
	uc := newTestUsecase(t, deps)
	in := VerifyCodeInput{Email: "jane@example.com", Code: "000000"}

	// Act: the first two mismatches are plain rejections.
	for i := range 2 {
		_, err := uc.VerifyCode(context.Background(), in)
		gerr := assertErrCode(t, err, goerror.CodeBadRequest)
		if gerr.Msg() != "Invalid verification code" {
			t.Fatalf("attempt %d: unexpected message %q", i+1, gerr.Msg())
		}
	}

	// Assert: the final mismatch exhausts the budget and opens the lock.
	_, err := uc.VerifyCode(context.Background(), in)
	gerr := assertErrCode(t, err, goerror.CodeTooManyRequest)
	if gerr.Msg() != "Too many failed attempts. Please try again later." {
		t.Fatalf("unexpected lockout message %q", gerr.Msg())
	}
	if gerr.RetryAfter() <= 0 {
		t.Fatalf("expected retry-after hint, got %v", gerr.RetryAfter())
	}

	// A later call with the right code is still refused while locked.
	_, err = uc.VerifyCode(context.Background(), VerifyCodeInput{Email: "jane@example.com", Code: "123456"})
	assertErrCode(t, err, goerror.CodeTooManyRequest)

	// The lock also refuses new code requests.
	err = uc.RequestCode(context.Background(), RequestCodeInput{Email: "jane@example.com"})
	assertErrCode(t, err, goerror.CodeTooManyRequest)
}

func TestVerifyCodeConsumeRace(t *testing.T) {
	// Arrange
	codeHash := mustHashBcrypt(t, "123456")
	repo := &mockRepoDB{
		getUserByEmail: func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{ID: 42, Email: email}, nil
		},
		getValidChallenge: func(_ context.Context, userID int64, p entity.ChallengePurpose, _ time.Time) (*entity.Challenge, error) {
			return &entity.Challenge{ID: 9, UserID: userID, Token: codeHash, Purpose: p}, nil
		},
		consumeChallenge: func(context.Context, int64) (bool, error) {
			return false, nil
		},
	}
	uc := newTestUsecase(t, &testDeps{repo: repo})

	// Act
	_, err := uc.VerifyCode(context.Background(), VerifyCodeInput{
		Email: "jane@example.com",
		Code:  "123456",
	})

	// Assert
	gerr := assertErrCode(t, err, goerror.CodeBadRequest)
	if gerr.Msg() != "Invalid or expired verification code" {
		t.Fatalf("unexpected message %q", gerr.Msg())
	}
}
