package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/regainhq/regain/internal/pkg/captcha"
	"github.com/regainhq/regain/internal/pkg/clock"
	"github.com/regainhq/regain/internal/pkg/config"
	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/pkg/goroutine"
	"github.com/regainhq/regain/internal/pkg/hash"
	"github.com/regainhq/regain/internal/pkg/idempotency"
	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/ratelimit"
	"github.com/regainhq/regain/internal/pkg/uid"
	"github.com/regainhq/regain/internal/pkg/validator"
	"github.com/regainhq/regain/internal/recovery/entity"
	"go.opentelemetry.io/otel/trace"
)

// PasswordChangedEvent is published after a successful password reset.
type PasswordChangedEvent struct {
	UserID int64
	Email  string
}

type repoMessaging interface {
	PublishPasswordChanged(ctx context.Context, msg PasswordChangedEvent) error
}

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetValidChallenge(ctx context.Context, userID int64, p entity.ChallengePurpose, now time.Time) (*entity.Challenge, error)

	ReplaceChallenge(ctx context.Context, ch entity.Challenge) error
	ConsumeChallenge(ctx context.Context, id int64) (bool, error)
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)

	CreateUser(ctx context.Context, user entity.User, passwordHash string) error
	UpsertCredential(ctx context.Context, userID int64, passwordHash string) error
}

type mailer interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
	SendPasswordChanged(ctx context.Context, email string) error
}

// Limiters groups the four fixed-window limiters the recovery flow charges.
// Each is its own instance with its own key prefix; request-block and
// verify-attempt intentionally share the email keyspace across prefixes.
type Limiters struct {
	// RequestThrottle paces how often a code can be requested per email.
	RequestThrottle ratelimit.Limiter
	// RequestBlock is the lockout created when verify attempts run out.
	RequestBlock ratelimit.Limiter
	// VerifyAttempt budgets failed code verifications per email.
	VerifyAttempt ratelimit.Limiter
	// ResetFinal caps how often the final reset step can run per email.
	ResetFinal ratelimit.Limiter
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	mailer        mailer
	limiters      Limiters
	captcha       captcha.Verifier
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	hasher        hash.Hash
	hmac          hash.Hash
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Mailer        mailer
	Limiters      Limiters
	Captcha       captcha.Verifier
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	Hasher        hash.Hash
	HMAC          hash.Hash
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		mailer:        dep.Mailer,
		limiters:      dep.Limiters,
		captcha:       dep.Captcha,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hasher:        dep.Hasher,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("recovery.usecase").Start(ctx, name)
}

// generateCode returns a uniformly distributed 6-digit code in
// [100000, 999999]. Uniformity matters: modulo folding a narrower source
// would bias low codes.
func (s *Usecase) generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// chargeFailedAttempt burns one verification attempt for email. When the
// budget runs out, it opens the request block and returns the lockout error
// the caller must surface instead of its own.
func (s *Usecase) chargeFailedAttempt(ctx context.Context, email string) error {
	res, err := s.limiters.VerifyAttempt.Consume(ctx, email, 1)
	if err != nil {
		slog.ErrorContext(ctx, "failed to charge verification attempt", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	if res.Allowed && res.Remaining > 0 {
		return nil
	}

	blockRes, err := s.limiters.RequestBlock.Consume(ctx, email, 1)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open request block", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	retryAfter := blockRes.RetryAfter
	if retryAfter <= 0 {
		// A fresh block was just opened; read its window back for the hint.
		if peek, perr := s.limiters.RequestBlock.Peek(ctx, email); perr == nil && peek.RetryAfter > 0 {
			retryAfter = peek.RetryAfter
		}
	}

	slog.WarnContext(ctx, "verification attempts exhausted, account recovery locked", "email", email)

	return goerror.NewRateLimited("Too many failed attempts. Please try again later.", retryAfter)
}
