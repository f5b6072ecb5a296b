package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

// CreatedAtLayout is the layout the client stamps on new transactions.
// It matches what a browser produces for new Date().toJSON().
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a recorded income or outcome as returned by the API.
	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Type        TransactionType `json:"type"`
		Price       Money           `json:"price"`
		Category    string          `json:"category"`
		CreatedAt   string          `json:"createdAt"`
	}

	// CreateTransactionInput is the validated form payload. It carries no id
	// and no timestamp: the store stamps createdAt and the API assigns the id.
	CreateTransactionInput struct {
		Description string
		Type        TransactionType
		Price       Money
		Category    string
	}

	// NewTransaction is the body sent to POST /transactions.
	NewTransaction struct {
		Description string          `json:"description" validate:"required,notblank"`
		Price       Money           `json:"price" validate:"gt=0"`
		Category    string          `json:"category" validate:"required,notblank"`
		Type        TransactionType `json:"type" validate:"required,oneof=income outcome"`
		CreatedAt   string          `json:"createdAt" validate:"required"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCreatedAt = errors.New("invalid createdAt")
)

func (t TransactionType) String() string {
	return string(t)
}

// Stamp turns the input into a wire payload created at the given instant.
func (in CreateTransactionInput) Stamp(at time.Time) NewTransaction {
	return NewTransaction{
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Type:        in.Type,
		CreatedAt:   at.UTC().Format(CreatedAtLayout),
	}
}

// CreatedTime parses CreatedAt. The API echoes whatever the client sent, so
// both millisecond and plain RFC 3339 forms are accepted.
func (t Transaction) CreatedTime() (time.Time, error) {
	return ParseCreatedAt(t.CreatedAt)
}

// ParseCreatedAt parses a createdAt string as produced by browsers or Go.
func ParseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidCreatedAt
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCreatedAt, s)
		}
	}
	return parsed, nil
}

// IsOutcome reports whether the transaction is displayed with a minus sign.
func (t Transaction) IsOutcome() bool {
	return t.Type == Outcome
}
