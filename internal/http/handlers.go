package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dtmoney/internal/form"
	"dtmoney/internal/log"
	"dtmoney/internal/session"
	"dtmoney/internal/validation"
)

const (
	msgCreated          = "Transação cadastrada com sucesso."
	msgSubmitInProgress = "Cadastro em andamento, aguarde."
	msgRenderFailed     = "Erro ao renderizar a página"
)

// handleIndex renders the full page. Every visit re-mounts the session
// store and starts from an empty form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Get(w, r)
	logger := s.requestLogger(ctx, sess)

	if err := sess.Store.Mount(ctx); err != nil {
		logger.WarnContext(ctx, "Initial transaction fetch failed",
			log.FieldOperation, log.OpMount, log.FieldError, err.Error())
	}
	sess.Form.Reset()

	s.render(w, r, http.StatusOK, "index.html", s.pageView(sess))
}

// handleTransactionsPartial renders the list and summary of the session,
// mounting the store first when the session is new.
func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Get(w, r)
	if !sess.Store.Mounted() {
		if err := sess.Store.Mount(ctx); err != nil {
			s.requestLogger(ctx, sess).WarnContext(ctx, "Transaction fetch failed",
				log.FieldOperation, log.OpMount, log.FieldError, err.Error())
		}
	}
	s.render(w, r, http.StatusOK, "transactions", newListView(s.formatter, sess.Store.Snapshot()))
}

// handleSearch refetches the list filtered by the submitted query. An empty
// query lists everything.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := s.sessions.Get(w, r)
	query := SearchQuery(r)

	if err := sess.Store.FetchTransactions(ctx, query); err != nil {
		s.requestLogger(ctx, sess).WarnContext(ctx, "Search failed",
			log.FieldOperation, log.OpFetch, log.FieldQuery, query, log.FieldError, err.Error())
	}
	s.render(w, r, http.StatusOK, "transactions", newListView(s.formatter, sess.Store.Snapshot()))
}

// handleCreateTransaction submits the creation form.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if errResp := ParseFormOrFail(w, r); errResp != nil {
		errResp.Write(w)
		return
	}

	sess := s.sessions.Get(w, r)
	logger := s.requestLogger(ctx, sess)

	created, err := sess.Form.Submit(ctx, FormValuesFromRequest(r))
	if s.metrics != nil {
		s.metrics.ObserveSubmit(err)
	}

	if errors.Is(err, form.ErrSubmitInProgress) {
		logger.InfoContext(ctx, "Duplicate submission rejected", log.FieldOperation, log.OpSubmit)
		NewHTMXResponse().
			Status(http.StatusConflict).
			Reswap("none").
			TriggerNotification(NotificationWarning, msgSubmitInProgress, 3000).
			Write(w)
		return
	}

	if err != nil {
		status := http.StatusBadGateway
		resp := NewHTMXResponse()
		if _, ok := validation.AsErrors(err); ok {
			status = http.StatusUnprocessableEntity
		} else {
			logger.ErrorContext(ctx, "Transaction creation failed",
				log.FieldOperation, log.OpCreate, log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeNetwork)
			resp.TriggerErrorNotification(form.SubmitFailedMessage)
		}
		s.writeTemplate(w, r, resp.Status(status), "transaction-form", newFormView(sess.Form.State()))
		return
	}

	log.NewStructuredLogger(logger).LogTransactionCreated(ctx, created)
	resp := NewHTMXResponse().
		TriggerTransactionCreated(created.ID).
		TriggerFormReset().
		TriggerSuccessNotification(msgCreated)
	s.writeTemplate(w, r, resp, "transaction-form", newFormView(sess.Form.State()))
}

// handleTransactionsMethodNotAllowed answers non-POST requests to /transactions.
func (s *Server) handleTransactionsMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MethodNotAllowedError(http.MethodPost).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}
	if s.sessions != nil {
		health["sessions"] = s.sessions.Len()
	}
	health["rate_limited_clients"] = s.rateLimiter.ActiveClients()
	writeJSON(w, http.StatusOK, health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.api == nil {
		checks["api"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.api.Ping(ctx); err != nil {
		checks["api"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["api"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) pageView(sess *session.Session) pageView {
	return pageView{
		List:   newListView(s.formatter, sess.Store.Snapshot()),
		Form:   newFormView(sess.Form.State()),
		Locale: s.formatter.Locale(),
	}
}

func (s *Server) requestLogger(ctx context.Context, sess *session.Session) *log.Logger {
	return log.FromContext(ctx).With(log.FieldSessionID, sess.ID)
}

// render executes a template into a 200-style response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	s.writeTemplate(w, r, NewHTMXResponse().Status(status), name, data)
}

func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, name string, data interface{}) {
	if s.templates == nil {
		InternalServerError(msgRenderFailed).Write(w)
		return
	}
	if err := resp.BodyTemplate(s.templates, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender, log.FieldError, err.Error())
		InternalServerError(msgRenderFailed).Write(w)
		return
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
