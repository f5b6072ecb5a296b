package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/storage"
	"dtmoney/internal/validation"
)

// publishTimeout bounds the event publish that follows a create.
const publishTimeout = 3 * time.Second

var tracer = otel.Tracer("dtmoney/internal/services")

// Repository persists transactions.
type Repository interface {
	CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, p storage.ListParams) ([]core.Transaction, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces created transactions.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
	Close() error
}

// TransactionService orchestrates transaction operations across SQLite and AMQP
type TransactionService struct {
	repo      Repository
	publisher Publisher
	schema    *validation.Schema
	logger    *log.Logger
}

// NewTransactionService wires the service. publisher may be nil, in which
// case created events are skipped.
func NewTransactionService(repo Repository, publisher Publisher, schema *validation.Schema, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	if schema == nil {
		schema = validation.New()
	}
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		schema:    schema,
		logger:    logger.WithComponent(log.ComponentAPI),
	}
}

// CreateTransaction validates nt, saves it and publishes a created event.
// The returned error is validation.Errors when nt is invalid. A publish
// failure is logged and never fails the create.
func (s *TransactionService) CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.type", string(nt.Type)))

	if err := s.schema.ValidatePayload(nt); err != nil {
		span.SetStatus(codes.Error, "invalid payload")
		return core.Transaction{}, err
	}

	// Save to SQLite first
	t, err := s.repo.CreateTransaction(ctx, nt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	span.SetAttributes(attribute.Int64("transaction.id", t.ID))

	if err := s.publishCreated(ctx, t); err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to publish transaction created message",
			log.FieldTxID, t.ID, log.FieldError, err.Error(), log.FieldOperation, log.OpPublish)
		// Don't fail the request - the transaction is saved
	}

	return t, nil
}

// GetTransaction returns one transaction; storage.ErrNotFound when missing.
func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListTransactions lists transactions matching p.
func (s *TransactionService) ListTransactions(ctx context.Context, p storage.ListParams) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, p)
}

// Ping checks the repository.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TransactionService) publishCreated(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping created message", log.FieldTxID, t.ID)
		return nil
	}
	// The event must go out even if the client hangs up right after the create.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return s.publisher.PublishTransactionCreated(ctx, t)
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}

	return nil
}
