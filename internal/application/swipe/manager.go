package swipe

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/alejandrodnm/swipebot/internal/domain"
	"github.com/shopspring/decimal"
)

// Manager hands out one Session per user. Sessions share the external
// collaborators in Deps but no batching state.
type Manager struct {
	ctx  context.Context
	deps Deps
	cfg  Config

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a manager whose sessions live until ctx is done or
// Close is called.
func NewManager(ctx context.Context, deps Deps, cfg Config) *Manager {
	return &Manager{
		ctx:      ctx,
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Session returns the user's session, creating it on first use.
func (m *Manager) Session(user string) (*Session, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return nil, errors.New("swipe.Session: empty user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, domain.ErrSessionClosed
	}
	if s, ok := m.sessions[user]; ok {
		return s, nil
	}
	s := NewSession(m.ctx, user, m.deps, m.cfg)
	m.sessions[user] = s
	slog.Debug("swipe: session opened", "user", user)
	return s, nil
}

// Swipe is a shortcut for Session(user).Swipe.
func (m *Manager) Swipe(ctx context.Context, user, marketID string, side domain.Side, stake decimal.Decimal) (domain.Intent, error) {
	s, err := m.Session(user)
	if err != nil {
		return domain.Intent{}, err
	}
	return s.Swipe(ctx, marketID, side, stake)
}

// Close closes every session and returns the joined errors.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
