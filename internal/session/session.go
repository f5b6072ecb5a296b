// Package session gives every browser its own transactions store and
// creation form, keyed by a random cookie and held in an LRU with a sliding
// TTL. A session lives as long as a page would in a single-page client.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"dtmoney/internal/cache"
	"dtmoney/internal/form"
	"dtmoney/internal/log"
	"dtmoney/internal/store"
)

// CookieName is the session cookie.
const CookieName = "dtmoney_session"

// Session is one client's state.
type Session struct {
	ID    string
	Store *store.Store
	Form  *form.Form
}

// Factory builds the store and form of a new session.
type Factory func(id string) *Session

// Hooks observe the session lifecycle.
type Hooks struct {
	Opened func()
	Closed func()
}

// Config bounds the session cache.
type Config struct {
	TTL          time.Duration
	MaxSessions  int
	SecureCookie bool
}

// Manager resolves requests to sessions. It is safe for concurrent use.
type Manager struct {
	sessions *cache.LRUCache[*Session]
	factory  Factory
	hooks    Hooks
	cfg      Config
	logger   *log.Logger
}

// NewManager creates a manager. Evicted sessions are dropped; a request still
// using one finishes against its own store.
func NewManager(cfg Config, factory Factory, hooks Hooks, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	m := &Manager{
		factory: factory,
		hooks:   hooks,
		cfg:     cfg,
		logger:  logger.WithComponent(log.ComponentSession),
	}
	m.sessions = cache.NewLRUCache[*Session](cfg.MaxSessions, cfg.TTL,
		cache.WithEvictFunc(func(id string, _ *Session) {
			m.logger.Debug("Session evicted", log.FieldSessionID, id)
			if m.hooks.Closed != nil {
				m.hooks.Closed()
			}
		}),
	)
	return m
}

// Cleaner exposes the underlying cache for periodic sweeping.
func (m *Manager) Cleaner() cache.Cleaner {
	return m.sessions
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.Size()
}

// Get returns the request's session, creating one (and setting the cookie)
// when the request has none or it has expired.
func (m *Manager) Get(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			if s, ok := m.sessions.Get(id.String()); ok {
				return s
			}
		}
	}

	id := uuid.NewString()
	s, created := m.sessions.GetOrCreate(id, func() *Session { return m.factory(id) })
	if created {
		if m.hooks.Opened != nil {
			m.hooks.Opened()
		}
		m.logger.DebugContext(r.Context(), "Session opened", log.FieldSessionID, id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	return m.sessions.Get(c.Value)
}
