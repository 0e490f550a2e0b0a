package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/regainhq/regain/internal/pkg/config"
	"github.com/regainhq/regain/internal/pkg/goerror"
	"github.com/regainhq/regain/internal/pkg/goroutine"
	"github.com/regainhq/regain/internal/pkg/hash"
	"github.com/regainhq/regain/internal/pkg/idempotency"
	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/ratelimit"
	"github.com/regainhq/regain/internal/pkg/validator"
	"github.com/regainhq/regain/internal/recovery/entity"
)

// mockRepoDB routes repository calls to per-test functions.
type mockRepoDB struct {
	getUserByEmail          func(ctx context.Context, email string) (*entity.User, error)
	getValidChallenge       func(ctx context.Context, userID int64, p entity.ChallengePurpose, now time.Time) (*entity.Challenge, error)
	replaceChallenge        func(ctx context.Context, ch entity.Challenge) error
	consumeChallenge        func(ctx context.Context, id int64) (bool, error)
	deleteExpiredChallenges func(ctx context.Context, now time.Time) (int64, error)
	createUser              func(ctx context.Context, user entity.User, passwordHash string) error
	upsertCredential        func(ctx context.Context, userID int64, passwordHash string) error
}

func (m *mockRepoDB) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.getUserByEmail(ctx, email)
}

func (m *mockRepoDB) GetValidChallenge(ctx context.Context, userID int64, p entity.ChallengePurpose, now time.Time) (*entity.Challenge, error) {
	return m.getValidChallenge(ctx, userID, p, now)
}

func (m *mockRepoDB) ReplaceChallenge(ctx context.Context, ch entity.Challenge) error {
	return m.replaceChallenge(ctx, ch)
}

func (m *mockRepoDB) ConsumeChallenge(ctx context.Context, id int64) (bool, error) {
	return m.consumeChallenge(ctx, id)
}

func (m *mockRepoDB) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	return m.deleteExpiredChallenges(ctx, now)
}

func (m *mockRepoDB) CreateUser(ctx context.Context, user entity.User, passwordHash string) error {
	return m.createUser(ctx, user, passwordHash)
}

func (m *mockRepoDB) UpsertCredential(ctx context.Context, userID int64, passwordHash string) error {
	return m.upsertCredential(ctx, userID, passwordHash)
}

type mockMailer struct {
	mu              sync.Mutex
	otpTo           []string
	otpCodes        []string
	changedTo       []string
	sendOTPErr      error
	sendChangedErr  error
	changedNotified chan struct{}
}

func (m *mockMailer) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendOTPErr != nil {
		return m.sendOTPErr
	}
	m.otpTo = append(m.otpTo, email)
	m.otpCodes = append(m.otpCodes, code)
	return nil
}

func (m *mockMailer) SendPasswordChanged(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.changedNotified != nil {
		defer close(m.changedNotified)
	}
	if m.sendChangedErr != nil {
		return m.sendChangedErr
	}
	m.changedTo = append(m.changedTo, email)
	return nil
}

type mockMessaging struct {
	mu     sync.Mutex
	events []PasswordChangedEvent
	err    error
}

func (m *mockMessaging) PublishPasswordChanged(_ context.Context, msg PasswordChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, msg)
	return nil
}

type mockCaptcha struct {
	err error
}

func (m *mockCaptcha) Verify(context.Context, string, string) error { return m.err }

// mockIdempotency always grants the lock and runs fn inline.
type mockIdempotency struct{}

func (mockIdempotency) Acquire(context.Context, string, time.Duration) (idempotency.State, error) {
	return idempotency.StateNone, nil
}

func (mockIdempotency) MarkCompleted(context.Context, string, time.Duration) error { return nil }

func (mockIdempotency) MarkFailed(context.Context, string, time.Duration) error { return nil }

func (mockIdempotency) Exec(ctx context.Context, _ string, fn func(context.Context) error, _ ...idempotency.Option) error {
	return fn(ctx)
}

type seqNumberID struct {
	mu   sync.Mutex
	next int64
}

func (s *seqNumberID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type staticStringID struct {
	value string
}

func (s *staticStringID) Generate() string { return s.value }

type fixedClock struct {
	now time.Time
}

func (f *fixedClock) Now() time.Time { return f.now }

// stubConfig answers the handful of keys the use cases read; everything else
// falls through to the embedded nil interface and would panic loudly.
type stubConfig struct {
	config.Config
	minutes map[string]int
}

func (s *stubConfig) GetMinute(key string) time.Duration {
	return time.Duration(s.minutes[key]) * time.Minute
}

type testDeps struct {
	repo      *mockRepoDB
	mailer    *mockMailer
	messaging *mockMessaging
	captcha   *mockCaptcha
	limiters  Limiters
	clock     *fixedClock
	goroutine *goroutine.Manager
}

func newTestUsecase(t *testing.T, deps *testDeps) *Usecase {
	t.Helper()

	v10, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("failed to init validator: %v", err)
	}

	if deps.clock == nil {
		deps.clock = &fixedClock{now: time.Unix(1700000000, 0)}
	}
	if deps.captcha == nil {
		deps.captcha = &mockCaptcha{}
	}
	if deps.mailer == nil {
		deps.mailer = &mockMailer{}
	}
	if deps.messaging == nil {
		deps.messaging = &mockMessaging{}
	}
	if deps.goroutine == nil {
		deps.goroutine = goroutine.NewManager(10)
	}
	if deps.limiters.RequestThrottle == nil {
		deps.limiters = newTestLimiters()
	}

	return New(Dependency{
		RepoDB:        deps.repo,
		RepoMessaging: deps.messaging,
		Mailer:        deps.mailer,
		Limiters:      deps.limiters,
		Captcha:       deps.captcha,
		Idempotency:   mockIdempotency{},
		Validator:     v10,
		Config: &stubConfig{minutes: map[string]int{
			"modules.recovery.otp_ttl_minutes":    15,
			"modules.recovery.ticket_ttl_minutes": 10,
		}},
		Hasher:     testBcrypt,
		HMAC:       testHMAC,
		UID:        &seqNumberID{},
		OID:        &staticStringID{value: "ticket-opaque-value"},
		Clock:      deps.clock,
		Instrument: instrument.NewNoop(),
		Goroutine:  deps.goroutine,
	})
}

func newTestLimiters() Limiters {
	return Limiters{
		RequestThrottle: ratelimit.NewMemory(ratelimit.Config{Prefix: "rl:request", Points: 1, Window: 10 * time.Minute}, nil),
		RequestBlock:    ratelimit.NewMemory(ratelimit.Config{Prefix: "rl:block", Points: 1, Window: 5 * time.Minute}, nil),
		VerifyAttempt:   ratelimit.NewMemory(ratelimit.Config{Prefix: "rl:attempt", Points: 3, Window: 15 * time.Minute}, nil),
		ResetFinal:      ratelimit.NewMemory(ratelimit.Config{Prefix: "rl:reset", Points: 5, Window: 15 * time.Minute}, nil),
	}
}

func assertErrCode(t *testing.T, err error, code goerror.Code) *goerror.Error {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Code() != code {
		t.Fatalf("expected code %s, got %s (message %q)", code, gerr.Code(), gerr.Msg())
	}

	return gerr
}

// testBcrypt uses the lowest cost to keep the suite fast.
var (
	testBcrypt = hash.NewBcrypt(4, "")
	testHMAC   = hash.NewHMACSHA256("test-secret")
)

func mustHashBcrypt(t *testing.T, plaintext string) string {
	t.Helper()

	h, err := testBcrypt.Hash(plaintext)
	if err != nil {
		t.Fatalf("failed to hash %q: %v", plaintext, err)
	}

	return string(h)
}

func TestGenerateCodeRange(t *testing.T) {
	uc := newTestUsecase(t, &testDeps{repo: &mockRepoDB{}})

	for range 50 {
		code, err := uc.generateCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}
