// Package apiclient talks to the transactions REST API.
//
// The API is json-server shaped: a collection at /transactions that accepts
// _sort/_order/q query parameters and echoes created resources back with a
// server-assigned id.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dtmoney/internal/core"
)

const (
	transactionsPath = "/transactions"
	maxErrorBody     = 4 << 10
)

// Operation names passed to observers.
const (
	OpList   = "list"
	OpCreate = "create"
	OpPing   = "ping"
)

// Observer is notified after every API call.
type Observer func(op string, status int, elapsed time.Duration, err error)

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("api %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from an API error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Client is a transactions API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero means no client-side timeout; the
// caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithObserver registers a callback run after each call.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(u.String(), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTransactions returns every transaction ordered by createdAt descending.
// A non-empty query is forwarded verbatim as q; filtering happens server side.
func (c *Client) ListTransactions(ctx context.Context, query string) ([]core.Transaction, error) {
	params := url.Values{}
	params.Set("_sort", "createdAt")
	params.Set("_order", "desc")
	if query != "" {
		params.Set("q", query)
	}

	var out []core.Transaction
	if err := c.do(ctx, OpList, http.MethodGet, transactionsPath+"?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

// CreateTransaction posts a new transaction and returns the API's
// representation of it, including the assigned id.
func (c *Client) CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	body, err := json.Marshal(nt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("marshal transaction: %w", err)
	}
	var created core.Transaction
	if err := c.do(ctx, OpCreate, http.MethodPost, transactionsPath, body, &created); err != nil {
		return core.Transaction{}, err
	}
	return created, nil
}

// Ping checks that the API answers on the transactions collection.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, OpPing, http.MethodGet, transactionsPath+"?_limit=1", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out interface{}) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer(op, status, time.Since(start), err)
		}
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
