package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dtmoney/internal/form"
	"dtmoney/internal/validation"
)

func TestSubmitResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, SubmitCreated},
		{form.ErrSubmitInProgress, SubmitBusy},
		{validation.Errors{"price": "x"}, SubmitInvalid},
		{errors.New("api down"), SubmitFailed},
	}
	for _, tt := range tests {
		if got := SubmitResult(tt.err); got != tt.want {
			t.Errorf("SubmitResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveAPI("list", 200, 10*time.Millisecond, nil)
	m.ObserveAPI("list", 0, time.Millisecond, errors.New("refused"))
	m.ObserveSubmit(nil)
	m.ObserveSubmit(form.ErrSubmitInProgress)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.ObserveHTTP(http.MethodGet, 200)
	m.ObserveRateLimited()

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("list", "200")); got != 1 {
		t.Fatalf("api 200 counter = %v", got)
	}
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("list", "error")); got != 1 {
		t.Fatalf("api error counter = %v", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues(SubmitBusy)); got != 1 {
		t.Fatalf("busy counter = %v", got)
	}
	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Fatalf("active sessions = %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimited); got != 1 {
		t.Fatalf("rate limited counter = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "dtmoney_form_submissions_total") {
		t.Fatalf("exposition missing submissions counter:\n%s", body)
	}
}
