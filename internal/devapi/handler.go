// Package devapi serves a json-server compatible subset of the transactions
// API backed by SQLite, for local development and the end-to-end tests of
// the web client.
package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/storage"
	"dtmoney/internal/validation"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 64 << 10

// Service is what the handler needs from the transaction service.
type Service interface {
	CreateTransaction(ctx context.Context, nt core.NewTransaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, p storage.ListParams) ([]core.Transaction, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	svc    Service
	logger *log.Logger
	mux    *http.ServeMux
}

// NewHandler builds the API routes, instrumented with otelhttp.
func NewHandler(svc Service, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Discard()
	}
	h := &Handler{
		svc:    svc,
		logger: logger.WithComponent(log.ComponentAPI),
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /transactions", h.handleList)
	h.mux.HandleFunc("POST /transactions", h.handleCreate)
	h.mux.HandleFunc("GET /transactions/{id}", h.handleGet)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)

	return otelhttp.NewHandler(log.Middleware(h.logger)(h.withAccessLog(h.mux)), "dtmoney-api")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := storage.ListParams{
		Sort:  q.Get("_sort"),
		Order: q.Get("_order"),
		Query: q.Get("q"),
	}
	if p.Sort != "" && !storage.ValidSort(p.Sort) {
		writeError(w, http.StatusBadRequest, "unsupported _sort field "+strconv.Quote(p.Sort))
		return
	}
	if p.Order != "" && p.Order != storage.OrderAsc && p.Order != storage.OrderDesc {
		writeError(w, http.StatusBadRequest, "_order must be asc or desc")
		return
	}
	if raw := q.Get("_limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "_limit must be a non-negative integer")
			return
		}
		p.Limit = n
	}

	list, err := h.svc.ListTransactions(r.Context(), p)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List failed",
			log.FieldOperation, log.OpList, log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeDatabase)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	t, err := h.svc.GetTransaction(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Get failed",
			log.FieldOperation, log.OpRead, log.FieldTxID, id, log.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var nt core.NewTransaction
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&nt); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	t, err := h.svc.CreateTransaction(r.Context(), nt)
	if errs, ok := validation.AsErrors(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Create failed",
			log.FieldOperation, log.OpCreate, log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeDatabase)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Location", "/transactions/"+strconv.FormatInt(t.ID, 10))
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogHTTPEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds(), r.RemoteAddr)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
