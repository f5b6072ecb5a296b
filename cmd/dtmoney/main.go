package main

import (
	"context"
	"os"
	"time"

	"dtmoney/internal/apiclient"
	"dtmoney/internal/cache"
	"dtmoney/internal/cli"
	"dtmoney/internal/config"
	"dtmoney/internal/form"
	"dtmoney/internal/format"
	apphttp "dtmoney/internal/http"
	"dtmoney/internal/log"
	"dtmoney/internal/metrics"
	"dtmoney/internal/session"
	"dtmoney/internal/store"
	"dtmoney/internal/validation"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg, log.ComponentApp, os.Stdout)

	loc, _ := cfg.Location() // checked by Validate
	formatter := format.MustNew(cfg.Locale, loc)
	m := metrics.New()

	api, err := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithObserver(m.ObserveAPI),
	)
	if err != nil {
		logger.Error("Failed to create API client", log.FieldError, err.Error())
		os.Exit(1)
	}

	schema := validation.New()
	sessions := session.NewManager(
		session.Config{TTL: cfg.SessionTTL, MaxSessions: cfg.SessionMax, SecureCookie: cfg.SecureCookies},
		func(id string) *session.Session {
			sl := logger.With(log.FieldSessionID, id)
			st := store.New(api, store.WithLogger(sl))
			return &session.Session{ID: id, Store: st, Form: form.New(st, schema, sl)}
		},
		session.Hooks{Opened: m.SessionOpened, Closed: m.SessionClosed},
		logger,
	)

	caches := cache.NewManager(logger)
	caches.Register(sessions.Cleaner())

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:           sessions,
		Formatter:          formatter,
		API:                api,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting dtmoney web client",
		"port", cfg.Port, "api", api.BaseURL(), "locale", formatter.Locale())

	err = cli.Serve(ctx, logger, &srv.Server, 30*time.Second,
		func(ctx context.Context) error { return caches.Run(ctx, time.Minute) },
		func(ctx context.Context) error { srv.RunMaintenance(ctx); return nil },
	)
	if err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
}
