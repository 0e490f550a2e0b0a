package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
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
	"github.com/regainhq/regain/internal/recovery/usecase"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	hasher    hash.Hash
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail
	messaging messaging.Messaging
	captcha   captcha.Verifier
	limiters  usecase.Limiters

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initLimiters()
	app.initMail()
	app.initMessaging()
	app.initCaptcha()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
