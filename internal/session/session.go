package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"puntoventa/internal/cart"
	"puntoventa/pkg/api"
)

// SESSION LIFECYCLE

// Session is what survives a terminal restart: the bearer token and the
// authenticated user, stored under a generated id the way the browser app
// kept them in localStorage. The cart never goes in here; it is ephemeral.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      api.User  `json:"user"`
	StartedAt time.Time `json:"started_at"`
}

// lastSessionKey is the store slot pointing at the most recent session, so
// a restarted terminal can find it without knowing the generated id.
const lastSessionKey = "last"

type sessionRef struct {
	ID string `json:"id"`
}

// AuthAPI is the slice of the backend client the manager drives.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	SetToken(token string)
	ClearToken()
}

// Store persists session records between restarts, redis in production.
type Store interface {
	SaveSession(ctx context.Context, sessionID string, session any) error
	GetSession(ctx context.Context, sessionID string, session any) error
	DropSession(ctx context.Context, sessionID string) error
}

// Manager owns the active session and its cart. Exactly one session is
// active per terminal; login replaces it, logout tears it down.
type Manager struct {
	api             AuthAPI
	store           Store
	standardTaxRate decimal.Decimal
	logger          *zap.Logger

	current *Session
	cart    *cart.Cart
}

func NewManager(apiClient AuthAPI, store Store, standardTaxRate decimal.Decimal, logger *zap.Logger) *Manager {
	return &Manager{
		api:             apiClient,
		store:           store,
		standardTaxRate: standardTaxRate,
		logger:          logger,
	}
}

// Login authenticates against the backend and starts a fresh session with an
// empty cart. A persistence failure is logged but does not fail the login;
// the session just will not survive a restart.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	result, err := m.api.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Token:     result.AccessToken,
		User:      result.User,
		StartedAt: time.Now(),
	}

	m.api.SetToken(sess.Token)
	m.current = sess
	m.cart = cart.New(m.standardTaxRate)

	if err := m.store.SaveSession(ctx, sess.ID, sess); err != nil {
		m.logger.Warn("Failed to persist session",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	} else if err := m.store.SaveSession(ctx, lastSessionKey, sessionRef{ID: sess.ID}); err != nil {
		m.logger.Warn("Failed to persist session pointer", zap.Error(err))
	}

	m.logger.Info("Session started",
		zap.String("username", sess.User.Username),
		zap.String("role", sess.User.Role))
	return sess, nil
}

// Resume restores a persisted session by id after a restart. The cart is
// recreated empty; it is never persisted.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	if err := m.store.GetSession(ctx, sessionID, &sess); err != nil {
		return nil, fmt.Errorf("resume session: %w", err)
	}

	m.api.SetToken(sess.Token)
	m.current = &sess
	m.cart = cart.New(m.standardTaxRate)

	m.logger.Info("Session resumed",
		zap.String("username", sess.User.Username))
	return &sess, nil
}

// ResumeLast restores whichever session Login persisted most recently.
// A missing or dropped pointer is a normal cold start, not a failure worth
// reporting to the user.
func (m *Manager) ResumeLast(ctx context.Context) (*Session, error) {
	var ref sessionRef
	if err := m.store.GetSession(ctx, lastSessionKey, &ref); err != nil {
		return nil, fmt.Errorf("resume last session: %w", err)
	}
	return m.Resume(ctx, ref.ID)
}

// Logout tears the session down: persisted record, bearer token and cart.
func (m *Manager) Logout(ctx context.Context) {
	if m.current == nil {
		return
	}

	if err := m.store.DropSession(ctx, m.current.ID); err != nil {
		m.logger.Warn("Failed to drop persisted session", zap.Error(err))
	}
	if err := m.store.DropSession(ctx, lastSessionKey); err != nil {
		m.logger.Warn("Failed to drop session pointer", zap.Error(err))
	}

	m.api.ClearToken()
	if m.cart != nil {
		m.cart.Clear()
	}
	m.current = nil
	m.cart = nil
}

// Expire handles a backend 401: if err is the session-expiry sentinel, all
// local session state is dropped and true is returned so the caller can
// force re-authentication.
func (m *Manager) Expire(ctx context.Context, err error) bool {
	if !errors.Is(err, api.ErrSessionExpired) {
		return false
	}
	m.logger.Warn("Session expired, forcing logout")
	m.Logout(ctx)
	return true
}

// Current returns the active session, nil when logged out.
func (m *Manager) Current() *Session {
	return m.current
}

// Cart returns the active session's cart, nil when logged out.
func (m *Manager) Cart() *cart.Cart {
	return m.cart
}

// LoggedIn reports whether a session is active.
func (m *Manager) LoggedIn() bool {
	return m.current != nil
}
