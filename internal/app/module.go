package app

import (
	"log/slog"
	"os"

	"github.com/regainhq/regain/internal/recovery"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.recovery.enabled") {
		if err := recovery.New(recovery.Dependency{
			Lifecycle:   a.ctx,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			OID:         a.oid,
			Hasher:      a.hasher,
			HMAC:        a.hmac,
			Clock:       a.clock,
			Validator:   a.validator,
			Router:      a.router,
			DBConn:      a.dbConn,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Mail:        a.mail,
			Captcha:     a.captcha,
			Limiters:    a.limiters,
			Goroutine:   a.goroutine,
		}); err != nil {
			slog.Error("failed to init module recovery", "error", err)
			os.Exit(1)
		}
	}
}
