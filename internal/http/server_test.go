package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"dtmoney/internal/core"
	"dtmoney/internal/form"
	"dtmoney/internal/format"
	"dtmoney/internal/metrics"
	"dtmoney/internal/session"
	"dtmoney/internal/store"
	"dtmoney/internal/validation"
)

type fakeAPI struct {
	mu        sync.Mutex
	list      []core.Transaction
	listErr   error
	createErr error
	pingErr   error
	queries   []string
	created   []core.NewTransaction
}

func (f *fakeAPI) ListTransactions(ctx context.Context, query string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]core.Transaction, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeAPI) CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	f.created = append(f.created, nt)
	return core.Transaction{
		ID:          int64(100 + len(f.created)),
		Description: nt.Description,
		Type:        nt.Type,
		Price:       nt.Price,
		Category:    nt.Category,
		CreatedAt:   nt.CreatedAt,
	}, nil
}

func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeAPI) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func newTestServer(t *testing.T, api *fakeAPI, ratePerMinute int) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	schema := validation.New()
	clock := func() time.Time { return time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC) }
	sessions := session.NewManager(
		session.Config{TTL: time.Hour, MaxSessions: 16},
		func(id string) *session.Session {
			st := store.New(api, store.WithClock(clock))
			return &session.Session{ID: id, Store: st, Form: form.New(st, schema, nil)}
		},
		session.Hooks{Opened: m.SessionOpened, Closed: m.SessionClosed},
		nil,
	)
	srv := NewServer(":0", Deps{
		Sessions:           sessions,
		Formatter:          format.MustNew("pt-BR", time.UTC),
		API:                api,
		Metrics:            m,
		RateLimitPerMinute: ratePerMinute,
	})
	if srv.templates == nil {
		t.Fatal("templates failed to parse")
	}
	return srv, m
}

func seedTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: 2, Description: "Hamburguer", Type: core.Outcome, Price: core.Money{Cents: 5900}, Category: "Food", CreatedAt: "2026-10-16T20:00:00.000Z"},
		{ID: 1, Description: "Desenvolvimento de site", Type: core.Income, Price: core.Money{Cents: 1400000}, Category: "Venda", CreatedAt: "2026-10-01T09:00:00.000Z"},
	}
}

func do(t *testing.T, srv *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	return req
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func assertMetric(t *testing.T, m *metrics.Metrics, line string) {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), line) {
		t.Errorf("metrics missing %q", line)
	}
}

func validForm() url.Values {
	return url.Values{
		"description": {"Aluguel"},
		"price":       {"1200,50"},
		"category":    {"Casa"},
		"type":        {"outcome"},
	}
}

func TestIndexAndHealth(t *testing.T) {
	api := &fakeAPI{list: seedTransactions()}
	srv, _ := newTestServer(t, api, 60)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Nova transação",
		"Busque uma transação",
		"Hamburguer",
		"- R$ 59,00",
		"R$ 14.000,00",
		"R$ 13.941,00",
		"16/10/2026",
		"Cadastrar",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Index(body, "Hamburguer") > strings.Index(body, "Desenvolvimento de site") {
		t.Error("rows not rendered in API order")
	}
	if got := api.queries; len(got) != 1 || got[0] != "" {
		t.Errorf("mount queries = %q, want one unfiltered fetch", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Request-ID") == "" {
		t.Error("security or request id headers missing")
	}
	sessionCookie(t, rr)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestIndexListFailureStillRenders(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}
	srv, _ := newTestServer(t, api, 60)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), msgListFailed) {
		t.Error("expected list error banner")
	}
	if strings.Contains(rr.Body.String(), msgEmptyList) {
		t.Error("empty message shown alongside the error")
	}
}

func TestListErrorOffersRetry(t *testing.T) {
	api := &fakeAPI{list: seedTransactions()}
	srv, _ := newTestServer(t, api, 60)
	cookie := sessionCookie(t, do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil)))

	api.mu.Lock()
	api.listErr = errors.New("connection refused")
	api.mu.Unlock()

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/transactions/search?query=Hamb", nil), cookie)
	body := rr.Body.String()
	if !strings.Contains(body, msgListFailed) {
		t.Fatal("expected list error banner")
	}
	if !strings.Contains(body, `hx-get="/ui/transactions/search?query=Hamb"`) {
		t.Fatalf("retry control missing or not bound to the failed query: %s", body)
	}
	if !strings.Contains(body, "Desenvolvimento de site") {
		t.Error("previous list should stay visible under the banner")
	}

	api.mu.Lock()
	api.listErr = nil
	api.list = api.list[:1]
	api.mu.Unlock()

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/transactions/search?query=Hamb", nil), cookie)
	body = rr.Body.String()
	if strings.Contains(body, msgListFailed) || strings.Contains(body, "Tentar novamente") {
		t.Error("banner still shown after a successful retry")
	}
	if !strings.Contains(body, "Hamburguer") || strings.Contains(body, "Desenvolvimento de site") {
		t.Errorf("retry did not refetch: %s", body)
	}
	if got := api.queries[len(api.queries)-1]; got != "Hamb" {
		t.Errorf("retry query = %q, want Hamb", got)
	}
}

func TestCreateFailureDoesNotFlagList(t *testing.T) {
	api := &fakeAPI{list: seedTransactions(), createErr: errors.New("upstream down")}
	srv, _ := newTestServer(t, api, 60)
	cookie := sessionCookie(t, do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil)))

	if rr := do(t, srv, postForm(validForm()), cookie); rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", rr.Code)
	}
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/transactions", nil), cookie)
	if strings.Contains(rr.Body.String(), msgListFailed) {
		t.Error("list banner shown for a failed create")
	}
}

func TestSearchForwardsQuery(t *testing.T) {
	api := &fakeAPI{list: seedTransactions()}
	srv, _ := newTestServer(t, api, 60)

	first := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, first)

	api.mu.Lock()
	api.list = api.list[:1]
	api.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/ui/transactions/search?query=Hamb", nil)
	rr := do(t, srv, req, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Hamburguer") || strings.Contains(body, "Desenvolvimento de site") {
		t.Errorf("search body did not replace the list: %s", body)
	}
	if !strings.Contains(body, `value="Hamb"`) {
		t.Error("search input lost the query")
	}
	if strings.Contains(body, "<html") {
		t.Error("partial rendered the full page")
	}
	if got := api.queries[len(api.queries)-1]; got != "Hamb" {
		t.Errorf("last query = %q, want Hamb", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	api := &fakeAPI{}
	srv, m := newTestServer(t, api, 60)

	rr := do(t, srv, postForm(url.Values{"price": {"abc"}, "category": {"Casa"}}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d want 422", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Informe a descrição", "Informe um valor numérico maior que zero", "Selecione entrada ou saída", `value="Casa"`} {
		if !strings.Contains(body, want) {
			t.Errorf("form body missing %q", want)
		}
	}
	if api.createCount() != 0 {
		t.Error("invalid form reached the API")
	}
	if rr.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected triggers: %s", rr.Header().Get("HX-Trigger"))
	}
	assertMetric(t, m, `dtmoney_form_submissions_total{result="invalid"} 1`)
}

func TestCreateTransactionSuccess(t *testing.T) {
	api := &fakeAPI{list: seedTransactions()}
	srv, _ := newTestServer(t, api, 60)

	first := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := sessionCookie(t, first)

	rr := do(t, srv, postForm(validForm()), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"transaction:created"`, `"id":101`, `"form:reset"`, `"type":"success"`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %s: %s", want, trigger)
		}
	}
	if strings.Contains(rr.Body.String(), `value="Aluguel"`) {
		t.Error("form was not reset after success")
	}

	if len(api.created) != 1 {
		t.Fatalf("created %d transactions, want 1", len(api.created))
	}
	nt := api.created[0]
	if nt.Price.Cents != 120050 || nt.Type != core.Outcome || nt.CreatedAt != "2026-10-17T12:30:00.000Z" {
		t.Errorf("unexpected payload %+v", nt)
	}

	list := do(t, srv, httptest.NewRequest(http.MethodGet, "/ui/transactions", nil), cookie)
	body := list.Body.String()
	if !strings.Contains(body, "Aluguel") {
		t.Fatal("new transaction missing from the list")
	}
	if strings.Index(body, "Aluguel") > strings.Index(body, "Hamburguer") {
		t.Error("new transaction should be listed first")
	}
	if api.queries[len(api.queries)-1] != "" || len(api.queries) != 1 {
		t.Errorf("partial refetched the list: %q", api.queries)
	}
}

func TestCreateTransactionAPIFailure(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("upstream down")}
	srv, m := newTestServer(t, api, 60)

	rr := do(t, srv, postForm(validForm()))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `value="Aluguel"`) || !strings.Contains(body, "checked") {
		t.Error("values were not kept after a failed create")
	}
	if !strings.Contains(body, form.SubmitFailedMessage) {
		t.Error("form error message missing")
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Error("error notification missing")
	}
	assertMetric(t, m, `dtmoney_form_submissions_total{result="failed"} 1`)
}

func TestTransactionsMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAPI{}, 60)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow = %q", rr.Header().Get("Allow"))
	}
}

func TestRateLimitOnPost(t *testing.T) {
	srv, m := newTestServer(t, &fakeAPI{}, 1)

	if rr := do(t, srv, postForm(validForm())); rr.Code != http.StatusOK {
		t.Fatalf("first post status=%d", rr.Code)
	}
	rr := do(t, srv, postForm(validForm()))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second post status=%d want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	assertMetric(t, m, "dtmoney_rate_limited_requests_total 1")

	// Reads are never throttled.
	if rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}
}

func TestReadyReportsAPIFailure(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAPI{pingErr: errors.New("dial tcp: refused")}, 60)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "not_ready") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAPI{}, 60)
	do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "dtmoney_active_sessions 1") {
		t.Error("active sessions gauge not exported")
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAPI{}, 60)
	for _, path := range []string{"/static/app.js", "/static/styles.css"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}
