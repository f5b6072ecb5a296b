package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dtmoney/internal/core"
	"dtmoney/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

// Sort orders accepted by ListParams.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// sortColumns maps the API field names to columns.
var sortColumns = map[string]string{
	"id":          "id",
	"description": "description",
	"type":        "type",
	"price":       "price_cents",
	"category":    "category",
	"createdAt":   "created_at",
}

// SortFields returns the field names ListParams.Sort accepts.
func SortFields() []string {
	return []string{"category", "createdAt", "description", "id", "price", "type"}
}

// ListParams filters and orders a listing. Zero values list everything by id.
type ListParams struct {
	Sort  string
	Order string
	Query string
	Limit int
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction stores nt and returns it with its assigned id. The
// payload is expected to be validated already.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Description: nt.Description,
		Type:        string(nt.Type),
		PriceCents:  nt.Price.Cents,
		Category:    nt.Category,
		CreatedAt:   nt.CreatedAt,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	t := toCore(row)
	r.logger.InfoContext(ctx, "Transaction saved to SQLite", log.NewFields().WithTransaction(t).ToSlice()...)
	return t, nil
}

// GetTransaction returns the transaction with the given id, or ErrNotFound.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toCore(row), nil
}

// ListTransactions returns the transactions matching p. The query matches a
// case-insensitive substring of description, category or type.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, p ListParams) ([]core.Transaction, error) {
	orderBy, err := orderClause(p.Sort, p.Order)
	if err != nil {
		return nil, err
	}

	rows, err := r.queries.ListTransactions(ctx, orderBy)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	needle := strings.ToLower(p.Query)
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		if needle != "" && !matches(row, needle) {
			continue
		}
		out = append(out, toCore(row))
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	r.logger.DebugContext(ctx, "Listed transactions",
		log.FieldOperation, log.OpList, log.FieldQuery, p.Query, log.FieldCount, len(out))
	return out, nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// ValidSort reports whether field is a sortable field name.
func ValidSort(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

func orderClause(sort, order string) (string, error) {
	if sort == "" {
		sort = "id"
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort)
	}
	dir := "ASC"
	switch strings.ToLower(order) {
	case "", OrderAsc:
	case OrderDesc:
		dir = "DESC"
	default:
		return "", fmt.Errorf("unsupported sort order %q", order)
	}
	if col == "id" {
		return "id " + dir, nil
	}
	return col + " " + dir + ", id " + dir, nil
}

func matches(row Transaction, needle string) bool {
	return strings.Contains(strings.ToLower(row.Description), needle) ||
		strings.Contains(strings.ToLower(row.Category), needle) ||
		strings.Contains(strings.ToLower(row.Type), needle)
}

func toCore(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		Description: row.Description,
		Type:        core.TransactionType(row.Type),
		Price:       core.Money{Cents: row.PriceCents},
		Category:    row.Category,
		CreatedAt:   row.CreatedAt,
	}
}
