// Package session keeps the per-browser state of the page application: who
// is browsing, their cart, their navigation and their cart widget.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName holds the session id
const CookieName = "mkt_session"

// Session is one browser's state. Every tab of the browser shares it.
type Session struct {
	ID     string
	Cart   *cart.Store
	Nav    *router.Navigator
	Widget *layout.CartWidget

	mu       sync.RWMutex
	user     *models.User
	lastSeen time.Time
}

// User returns the selected profile, nil for a guest
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Role returns the selected profile's role, or guest
func (s *Session) Role() models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.RoleGuest
	}
	return s.user.Role
}

// SetUser switches the session to profile u (nil signs out to guest)
func (s *Session) SetUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	role := models.RoleGuest
	if u != nil {
		role = u.Role
	}
	s.Widget.SetRole(role)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Manager holds the sessions served by this instance
type Manager struct {
	storage    cart.Storage
	router     *router.Router
	cartPrefix string
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. Carts persist in storage under
// cartPrefix+sessionID.
func NewManager(storage cart.Storage, r *router.Router, cartPrefix string, ttl time.Duration) *Manager {
	return &Manager{
		storage:    storage,
		router:     r,
		cartPrefix: cartPrefix,
		ttl:        ttl,
		logger:     util.Named("session"),
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// Open returns the session for id, creating it when this instance does not
// hold it yet. A malformed id gets a fresh one. The second result reports
// whether the session was created.
func (m *Manager) Open(ctx context.Context, id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.newSession(id)
		m.sessions[id] = s
		util.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		s.Widget.Attach(ctx, s.Nav, s.Cart)
		m.logger.Debug("Session opened", zap.String("session_id", id))
	}
	s.touch(m.now())
	return s, !ok
}

func (m *Manager) newSession(id string) *Session {
	return &Session{
		ID:     id,
		Cart:   cart.NewStore(m.storage, m.cartPrefix+id),
		Nav:    router.NewNavigator(m.router),
		Widget: layout.NewCartWidget(models.RoleGuest),
	}
}

// Get returns a held session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len reports how many sessions are held
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove drops a session and releases its listeners. The persisted cart stays.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	util.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if ok {
		m.close(s)
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	util.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range expired {
		m.close(s)
	}
	if len(expired) > 0 {
		m.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// WatchCartChanges forwards writes made by other instances to the matching
// session's cart, which re-reads and notifies its listeners. It blocks until
// ctx is done.
func (m *Manager) WatchCartChanges(ctx context.Context, feed cart.ChangeFeed) error {
	return feed.Watch(ctx, func(change cart.Change) {
		if !strings.HasPrefix(change.Key, m.cartPrefix) {
			return
		}
		s, ok := m.Get(strings.TrimPrefix(change.Key, m.cartPrefix))
		if !ok {
			return
		}
		m.logger.Debug("External cart change",
			zap.String("session_id", s.ID),
			zap.String("origin", change.Origin))
		s.Cart.HandleExternalChange(ctx)
	})
}

func (m *Manager) close(s *Session) {
	s.Widget.Detach(s.Nav, s.Cart)
	s.Nav.Close()
}

type ctxKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
