package main

import (
	"net/http"
	"os"
	"time"

	"dtmoney/internal/amqp"
	"dtmoney/internal/cli"
	"dtmoney/internal/config"
	"dtmoney/internal/devapi"
	"dtmoney/internal/log"
	"dtmoney/internal/services"
	"dtmoney/internal/validation"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateAPI)
	logger := cli.SetupLogger(cfg, log.ComponentAPI, os.Stdout)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Events are best effort; the API still serves without a broker.
			logger.Warn("AMQP unavailable, created events disabled", log.FieldError, err.Error())
		} else {
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewTransactionService(repo, publisher, validation.New(), logger)
	defer svc.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           devapi.NewHandler(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting dtmoney dev API", "port", cfg.APIPort, "db", cfg.SQLiteDBPath)
	if err := cli.Serve(ctx, logger, srv, 10*time.Second); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		svc.Close()
		os.Exit(1)
	}
}
