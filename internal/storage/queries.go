package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID          int64
	Description string
	Type        string
	PriceCents  int64
	Category    string
	CreatedAt   string
}

const transactionColumns = `id, description, type, price_cents, category, created_at`

type CreateTransactionParams struct {
	Description string
	Type        string
	PriceCents  int64
	Category    string
	CreatedAt   string
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (description, type, price_cents, category, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Description,
		arg.Type,
		arg.PriceCents,
		arg.Category,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	return scanTransaction(row)
}

// ListTransactions returns every row ordered by orderBy, which must be one of
// the sortColumns values (with direction) and is never user text.
func (q *Queries) ListTransactions(ctx context.Context, orderBy string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY `+orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (Transaction, error) {
	var i Transaction
	err := s.Scan(
		&i.ID,
		&i.Description,
		&i.Type,
		&i.PriceCents,
		&i.Category,
		&i.CreatedAt,
	)
	return i, err
}
