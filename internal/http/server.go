package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dtmoney/internal/format"
	"dtmoney/internal/log"
	"dtmoney/internal/metrics"
	"dtmoney/internal/session"
	appweb "dtmoney/web"
)

// Pinger checks that the transactions API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the web server.
type Deps struct {
	Sessions           *session.Manager
	Formatter          *format.Formatter
	API                Pinger
	Metrics            *metrics.Metrics
	Logger             *log.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates   *template.Template
	sessions    *session.Manager
	formatter   *format.Formatter
	api         Pinger
	metrics     *metrics.Metrics
	rateLimiter *rateLimiter
	logger      *log.Logger
	started     time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	formatter := deps.Formatter
	if formatter == nil {
		formatter = format.MustNew(format.DefaultLocale, nil)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		sessions:    deps.Sessions,
		formatter:   formatter,
		api:         deps.API,
		metrics:     deps.Metrics,
		rateLimiter: newRateLimiter(deps.RateLimitPerMinute),
		logger:      logger.WithComponent(log.ComponentHTTP),
		started:     time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err.Error(), log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactionsPartial)
	mux.HandleFunc("GET /ui/transactions/search", s.handleSearch)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("/transactions", s.handleTransactionsMethodNotAllowed)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = s.withRateLimit(h)
	h = s.withSecurityHeaders(h)
	h = s.withRequestContext(h)
	h = otelhttp.NewHandler(h, "dtmoney-web")
	s.Handler = h

	return s
}

// RunMaintenance sweeps rate limiter state until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	s.rateLimiter.run(ctx)
}
