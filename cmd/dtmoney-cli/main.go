package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"dtmoney/internal/amqp"
	"dtmoney/internal/apiclient"
	"dtmoney/internal/cli"
	"dtmoney/internal/config"
	"dtmoney/internal/core"
	"dtmoney/internal/form"
	"dtmoney/internal/format"
	"dtmoney/internal/log"
	"dtmoney/internal/store"
	"dtmoney/internal/validation"
)

const usage = `usage: dtmoney-cli <command>

commands:
  list [query]   list transactions, newest first, optionally filtered
  add            create a transaction interactively
  watch          print transactions as they are created (needs AMQP_URL)`

func main() {
	cli.LoadEnvFile()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	// Logs go to stderr so they never mix with command output.
	logger := cli.SetupLogger(cfg, log.ComponentCLI, os.Stderr)

	loc, _ := cfg.Location()
	formatter := format.MustNew(cfg.Locale, loc)

	ctx, stop := cli.SignalContext()
	defer stop()

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(ctx, cfg, logger, formatter, strings.Join(os.Args[2:], " "))
	case "add":
		err = runAdd(ctx, cfg, logger, formatter)
	case "watch":
		err = runWatch(ctx, cfg, logger, formatter)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config, logger *log.Logger) (*store.Store, error) {
	api, err := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.APITimeout))
	if err != nil {
		return nil, err
	}
	return store.New(api, store.WithLogger(logger)), nil
}

func runList(ctx context.Context, cfg *config.Config, logger *log.Logger, f *format.Formatter, query string) error {
	st, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	if query == "" {
		err = st.Mount(ctx)
	} else {
		err = st.FetchTransactions(ctx, query)
	}
	if err != nil {
		return err
	}
	return renderList(os.Stdout, f, st.Transactions())
}

func runAdd(ctx context.Context, cfg *config.Config, logger *log.Logger, f *format.Formatter) error {
	st, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	schema := validation.New()
	fm := form.New(st, schema, logger)

	var values validation.FormValues
	for {
		if err := promptTransaction(ctx, &values); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		created, err := fm.Submit(ctx, values)
		if errs, ok := validation.AsErrors(err); ok {
			renderErrors(os.Stderr, errs)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", form.SubmitFailedMessage, err)
		}
		return renderList(os.Stdout, f, []core.Transaction{created})
	}
}

// promptTransaction runs the creation form, keeping previous answers.
func promptTransaction(ctx context.Context, v *validation.FormValues) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Descrição").Value(&v.Description),
			huh.NewInput().Title("Preço").Placeholder("0,00").Value(&v.Price),
			huh.NewInput().Title("Categoria").Value(&v.Category),
			huh.NewSelect[string]().
				Title("Tipo").
				Options(
					huh.NewOption("Entrada", string(core.Income)),
					huh.NewOption("Saída", string(core.Outcome)),
				).
				Value(&v.Type),
		),
	).RunWithContext(ctx)
}

func runWatch(ctx context.Context, cfg *config.Config, logger *log.Logger, f *format.Formatter) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ConsumeTransactionCreated(ctx, func(msg *amqp.TransactionCreatedMessage) error {
		return renderRow(os.Stdout, f, msg.Transaction())
	})
}

func renderErrors(w io.Writer, errs validation.Errors) {
	for _, field := range []string{validation.FieldDescription, validation.FieldPrice, validation.FieldCategory, validation.FieldType} {
		if msg, ok := errs[field]; ok {
			fmt.Fprintf(w, "  %s: %s\n", field, msg)
		}
	}
}
