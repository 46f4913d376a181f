package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
	emailsvc "github.com/trezcool/shule/services/email"
	sendgridmail "github.com/trezcool/shule/services/email/sendgrid"
	logsvc "github.com/trezcool/shule/services/logger"
	ratelimitsvc "github.com/trezcool/shule/services/ratelimit"
	schedulersvc "github.com/trezcool/shule/services/scheduler"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf, logger)
	}

	var limiter core.RateLimiter
	if rl, err := ratelimitsvc.NewRedisLimiter(conf); err == nil {
		limiter = rl
		defer func() { _ = rl.Close() }()
	} else {
		logger.Warn(fmt.Sprintf("redis unavailable, falling back to in-memory rate limiting: %v", err))
		limiter = ratelimitsvc.NewMemoryLimiter()
	}

	acctRepo := sqlxrepos.NewAccountRepository(dbx)
	taxSvc := taxonomy.NewService(sqlxrepos.NewTaxonomyRepository(dbx))
	notifSvc := notification.NewService(
		sqlxrepos.NewNotificationRepository(dbx),
		account.NewRecipientDirectory(acctRepo),
		mailSvc,
		conf,
	)
	acctSvc := account.NewService(acctRepo, taxSvc, notifSvc, mailSvc, conf)
	msgSvc := messaging.NewService(sqlxrepos.NewMessageRepository(dbx), acctSvc, notifSvc, conf)
	formSvc := formation.NewService(sqlxrepos.NewFormationRepository(dbx), acctSvc, notifSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Maintenance Jobs

	scheduler := schedulersvc.New(acctSvc, logger)
	if err = scheduler.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
	}
	defer scheduler.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AccountSvc: acctSvc,
			MessageSvc: msgSvc,
			NotifSvc:   notifSvc,
			FormSvc:    formSvc,
			Limiter:    limiter,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
