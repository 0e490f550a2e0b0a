package recovery

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/regainhq/regain/internal/pkg/captcha"
	"github.com/regainhq/regain/internal/pkg/clock"
	"github.com/regainhq/regain/internal/pkg/config"
	"github.com/regainhq/regain/internal/pkg/goroutine"
	"github.com/regainhq/regain/internal/pkg/hash"
	"github.com/regainhq/regain/internal/pkg/idempotency"
	"github.com/regainhq/regain/internal/pkg/instrument"
	"github.com/regainhq/regain/internal/pkg/mail"
	"github.com/regainhq/regain/internal/pkg/messaging"
	"github.com/regainhq/regain/internal/pkg/router"
	"github.com/regainhq/regain/internal/pkg/uid"
	"github.com/regainhq/regain/internal/pkg/validator"
	"github.com/regainhq/regain/internal/recovery/inbound"
	"github.com/regainhq/regain/internal/recovery/outbound/db"
	"github.com/regainhq/regain/internal/recovery/outbound/mailer"
	"github.com/regainhq/regain/internal/recovery/outbound/mq"
	"github.com/regainhq/regain/internal/recovery/usecase"
)

type Dependency struct {
	// Lifecycle is canceled on shutdown so background work can drain.
	Lifecycle   context.Context            `validate:"required"`
	DBConn      *pgxpool.Pool              `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Messaging        `validate:"required"`
	Mail        mail.Mail                  `validate:"required"`
	Captcha     captcha.Verifier           `validate:"required"`
	Limiters    usecase.Limiters           `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	OID         uid.StringID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Hasher      hash.Hash                  `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbRecovery := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)
	sender := mailer.NewMailer(dep.Mail, dep.Config.GetString("mail.from"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        dbRecovery,
		RepoMessaging: repoMsg,
		Mailer:        sender,
		Limiters:      dep.Limiters,
		Captcha:       dep.Captcha,
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Hasher:        dep.Hasher,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	dep.Goroutine.Go(dep.Lifecycle, uc.RunChallengeSweeper)

	return nil
}
