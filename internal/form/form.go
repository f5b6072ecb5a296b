// Package form implements the transaction creation form: it keeps the raw
// field values, validates them as a unit and hands valid input to the store.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/validation"
)

// ErrSubmitInProgress is returned when Submit is called while a previous
// submission has not completed.
var ErrSubmitInProgress = errors.New("submission already in progress")

// SubmitFailedMessage is shown when the API rejects or cannot be reached.
const SubmitFailedMessage = "Não foi possível cadastrar a transação. Tente novamente."

// Creator creates transactions. The store implements it.
type Creator interface {
	CreateTransaction(ctx context.Context, in core.CreateTransactionInput) (core.Transaction, error)
}

// State is what the view renders.
type State struct {
	Values     validation.FormValues
	Errors     validation.Errors
	FormError  string
	Submitting bool
}

// Form is safe for concurrent use; at most one submission runs at a time.
type Form struct {
	creator Creator
	schema  *validation.Schema
	logger  *log.Logger

	submitting atomic.Bool

	mu      sync.Mutex
	values  validation.FormValues
	errs    validation.Errors
	formErr string
}

// New creates an empty form that submits to creator.
func New(creator Creator, schema *validation.Schema, logger *log.Logger) *Form {
	if logger == nil {
		logger = log.Discard()
	}
	return &Form{
		creator: creator,
		schema:  schema,
		logger:  logger.WithComponent(log.ComponentForm),
	}
}

// Submit validates values and, when they pass, creates the transaction and
// clears the form. Invalid input never reaches the creator; the returned
// error is then validation.Errors. If the creator fails the values are kept.
func (f *Form) Submit(ctx context.Context, values validation.FormValues) (core.Transaction, error) {
	if !f.submitting.CompareAndSwap(false, true) {
		f.logger.DebugContext(ctx, "Submit rejected, another submission is in flight")
		return core.Transaction{}, ErrSubmitInProgress
	}
	defer f.submitting.Store(false)

	f.mu.Lock()
	f.values = values
	f.formErr = ""
	f.errs = nil
	f.mu.Unlock()

	in, err := f.schema.ValidateForm(values)
	if err != nil {
		errs, _ := validation.AsErrors(err)
		f.mu.Lock()
		f.errs = errs
		f.mu.Unlock()
		f.logger.DebugContext(ctx, "Form validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err.Error())
		return core.Transaction{}, err
	}

	created, err := f.creator.CreateTransaction(ctx, in)
	if err != nil {
		f.mu.Lock()
		f.formErr = SubmitFailedMessage
		f.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("submit transaction: %w", err)
	}

	f.Reset()
	f.logger.InfoContext(ctx, "Transaction submitted", log.NewFields().WithTransaction(created).WithOperation(log.OpSubmit).ToSlice()...)
	return created, nil
}

// Reset clears every field, error and message.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = validation.FormValues{}
	f.errs = nil
	f.formErr = ""
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	return f.submitting.Load()
}

// State returns a copy of the form state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs validation.Errors
	if len(f.errs) > 0 {
		errs = make(validation.Errors, len(f.errs))
		for k, v := range f.errs {
			errs[k] = v
		}
	}
	return State{
		Values:     f.values,
		Errors:     errs,
		FormError:  f.formErr,
		Submitting: f.submitting.Load(),
	}
}
