// Package store holds the transactions collection of one client session.
//
// The Store is the only component that talks to the transactions API. Views
// and the creation form read and write through it. The collection is kept in
// createdAt-descending order: the API sorts on fetch and creates are
// prepended without re-sorting.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
)

// API is the subset of the transactions API the store needs.
type API interface {
	ListTransactions(ctx context.Context, query string) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error)
}

// Status describes the state of the collection.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
)

// Snapshot is a consistent copy of the store state.
//
// FetchErr is set only while the latest applied fetch has failed; a failed
// create never sets it. Query is the filter of the collection shown and
// FetchQuery the filter of the latest applied fetch, which differs from Query
// after a failure.
type Snapshot struct {
	Transactions []core.Transaction
	Status       Status
	Err          error
	FetchErr     error
	Query        string
	FetchQuery   string
	Mounted      bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

type recentCreate struct {
	gen uint64
	tx  core.Transaction
}

// Store is safe for concurrent use.
type Store struct {
	api    API
	now    func() time.Time
	logger *log.Logger

	mu           sync.Mutex
	transactions []core.Transaction
	status       Status
	lastErr      error
	errFromFetch bool
	fetchErr     error
	query        string
	fetchQuery   string
	mounted      bool
	inflight     int

	// fetchSeq numbers fetches as they start; appliedSeq is the newest one
	// whose outcome has been applied. Older responses are dropped.
	fetchSeq   uint64
	appliedSeq uint64

	// generation counts successful creates. Creates newer than a fetch's
	// start are re-added to its response if the API did not include them.
	generation uint64
	recent     []recentCreate
}

// New returns an empty store backed by api.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:          api,
		now:          time.Now,
		logger:       log.Discard(),
		transactions: []core.Transaction{},
		status:       StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount performs the initial fetch with no query filter. Calling it again
// behaves like a page reload: the filter is cleared and the list refetched.
func (s *Store) Mount(ctx context.Context) error {
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
	return s.FetchTransactions(ctx, "")
}

// Mounted reports whether Mount has been called.
func (s *Store) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// FetchTransactions replaces the collection with the API's list, filtered
// server-side by query when it is non-empty. On failure the previous
// collection stays in place and the error is returned.
func (s *Store) FetchTransactions(ctx context.Context, query string) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	startGen := s.generation
	s.inflight++
	s.status = StatusLoading
	s.mu.Unlock()

	logger := s.logger.With(log.FieldOperation, log.OpFetch, log.FieldFetchSeq, seq)
	logger.DebugContext(ctx, "Fetching transactions", log.FieldQuery, query)

	list, err := s.api.ListTransactions(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if seq < s.appliedSeq {
		s.settle()
		logger.DebugContext(ctx, "Discarding stale fetch response", "applied_seq", s.appliedSeq)
		return nil
	}
	s.appliedSeq = seq
	s.fetchQuery = query

	if err != nil {
		s.lastErr = err
		s.errFromFetch = true
		s.fetchErr = err
		s.settle()
		logger.WarnContext(ctx, "Fetch transactions failed", log.FieldError, err.Error())
		return fmt.Errorf("fetch transactions: %w", err)
	}

	s.transactions = s.reconcile(list, startGen, query)
	s.query = query
	s.lastErr = nil
	s.errFromFetch = false
	s.fetchErr = nil
	s.settle()
	logger.DebugContext(ctx, "Transactions fetched", log.FieldCount, len(s.transactions))
	return nil
}

// reconcile prepends creates that completed after the fetch started and are
// missing from its response. A filtered response is taken as is: the API
// alone decides what matches the query. Called with mu held.
func (s *Store) reconcile(list []core.Transaction, startGen uint64, query string) []core.Transaction {
	seen := make(map[int64]struct{}, len(list))
	for _, t := range list {
		seen[t.ID] = struct{}{}
	}
	var missing []core.Transaction
	kept := s.recent[:0]
	for _, c := range s.recent {
		if c.gen <= startGen {
			continue
		}
		kept = append(kept, c)
		if query != "" {
			continue
		}
		if _, ok := seen[c.tx.ID]; !ok {
			missing = append(missing, c.tx)
		}
	}
	s.recent = kept

	out := make([]core.Transaction, 0, len(list)+len(missing))
	// recent is oldest first, the head must be newest first
	for i := len(missing) - 1; i >= 0; i-- {
		out = append(out, missing[i])
	}
	return append(out, list...)
}

// settle leaves the loading state once nothing is in flight. Called with mu held.
func (s *Store) settle() {
	if s.inflight > 0 {
		s.status = StatusLoading
		return
	}
	if s.lastErr != nil {
		s.status = StatusError
		return
	}
	s.status = StatusIdle
}

// CreateTransaction stamps createdAt with the current time, sends the
// transaction to the API and prepends the API's representation. The input is
// assumed to be validated already. On failure the collection is unchanged.
func (s *Store) CreateTransaction(ctx context.Context, in core.CreateTransactionInput) (core.Transaction, error) {
	payload := in.Stamp(s.now())
	logger := s.logger.WithOperation(log.OpCreate)

	created, err := s.api.CreateTransaction(ctx, payload)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.errFromFetch = false
		s.settle()
		s.mu.Unlock()
		logger.WarnContext(ctx, "Create transaction failed",
			append(log.NewFields().WithInput(in).WithError(err).ToSlice(), log.FieldCreatedAt, payload.CreatedAt)...)
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.mu.Lock()
	// A fetch issued after the API stored the row may already hold it.
	if i := indexOf(s.transactions, created.ID); i >= 0 {
		s.transactions[i] = created
	} else {
		s.transactions = append([]core.Transaction{created}, s.transactions...)
	}
	s.generation++
	if s.inflight > 0 {
		s.recent = append(s.recent, recentCreate{gen: s.generation, tx: created})
	}
	if s.lastErr != nil && !s.errFromFetch {
		// back to the fetch failure, if any, that the create error masked
		s.lastErr = s.fetchErr
		s.errFromFetch = s.fetchErr != nil
	}
	s.settle()
	s.mu.Unlock()

	logger.DebugContext(ctx, "Transaction prepended", log.NewFields().WithTransaction(created).ToSlice()...)
	return created, nil
}

// Transactions returns a copy of the current collection.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTransactions()
}

// Snapshot returns the collection together with its status.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Transactions: s.copyTransactions(),
		Status:       s.status,
		Err:          s.lastErr,
		Query:        s.query,
		FetchErr:     s.fetchErr,
		FetchQuery:   s.fetchQuery,
		Mounted:      s.mounted,
	}
}

// Summary totals the current collection.
func (s *Store) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.transactions)
}

func (s *Store) copyTransactions() []core.Transaction {
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func indexOf(txs []core.Transaction, id int64) int {
	for i, t := range txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
