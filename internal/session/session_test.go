package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"puntoventa/pkg/api"
)

type fakeAuth struct {
	result *api.LoginResult
	err    error
	token  string
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*api.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) SetToken(token string) { f.token = token }
func (f *fakeAuth) ClearToken()           { f.token = "" }

type memStore struct {
	sessions map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string][]byte{}}
}

func (m *memStore) SaveSession(ctx context.Context, sessionID string, session any) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.sessions[sessionID] = data
	return nil
}

func (m *memStore) GetSession(ctx context.Context, sessionID string, session any) error {
	data, ok := m.sessions[sessionID]
	if !ok {
		return errors.New("not found")
	}
	return json.Unmarshal(data, session)
}

func (m *memStore) DropSession(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

func newTestManager(auth *fakeAuth, store *memStore) *Manager {
	return NewManager(auth, store, decimal.NewFromInt(16), zap.NewNop())
}

func TestLogin_StartsSessionWithEmptyCart(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	store := newMemStore()
	m := newTestManager(auth, store)

	sess, err := m.Login(context.Background(), "ana", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if !m.LoggedIn() {
		t.Error("Expected logged-in manager")
	}
	if auth.token != "tok123" {
		t.Errorf("Token not installed on API client, got %q", auth.token)
	}
	if m.Cart() == nil || !m.Cart().Empty() {
		t.Error("Expected a fresh empty cart")
	}
	if _, ok := store.sessions[sess.ID]; !ok {
		t.Error("Session not persisted")
	}
}

func TestLogin_FailurePropagates(t *testing.T) {
	auth := &fakeAuth{err: errors.New("bad credentials")}
	m := newTestManager(auth, newMemStore())

	if _, err := m.Login(context.Background(), "ana", "wrong"); err == nil {
		t.Fatal("Expected login error")
	}
	if m.LoggedIn() {
		t.Error("Manager should stay logged out after failed login")
	}
}

func TestResume(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	store := newMemStore()
	m := newTestManager(auth, store)

	sess, err := m.Login(context.Background(), "ana", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Fresh manager, same store: a restarted terminal.
	m2 := newTestManager(&fakeAuth{}, store)
	resumed, err := m2.Resume(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.User.Username != "ana" {
		t.Errorf("Expected resumed user ana, got %s", resumed.User.Username)
	}
	if m2.Cart() == nil || !m2.Cart().Empty() {
		t.Error("Resumed session must start with an empty cart")
	}
}

func TestResumeLast(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	store := newMemStore()
	m := newTestManager(auth, store)

	if _, err := m.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Restarted terminal: no session id survives in memory, only the store.
	restarted := &fakeAuth{}
	m2 := newTestManager(restarted, store)
	resumed, err := m2.ResumeLast(context.Background())
	if err != nil {
		t.Fatalf("ResumeLast failed: %v", err)
	}
	if resumed.User.Username != "ana" {
		t.Errorf("Expected resumed user ana, got %s", resumed.User.Username)
	}
	if restarted.token != "tok123" {
		t.Errorf("Bearer token not reinstalled, got %q", restarted.token)
	}
}

func TestResumeLast_NothingToResume(t *testing.T) {
	m := newTestManager(&fakeAuth{}, newMemStore())

	if _, err := m.ResumeLast(context.Background()); err == nil {
		t.Fatal("Expected error on cold start")
	}
	if m.LoggedIn() {
		t.Error("Manager must stay logged out")
	}
}

func TestResumeLast_GoneAfterLogout(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	store := newMemStore()
	m := newTestManager(auth, store)

	if _, err := m.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	m.Logout(context.Background())

	m2 := newTestManager(&fakeAuth{}, store)
	if _, err := m2.ResumeLast(context.Background()); err == nil {
		t.Fatal("Logged-out session must not be resumable")
	}
}

func TestLogout_TearsEverythingDown(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	store := newMemStore()
	m := newTestManager(auth, store)

	sess, err := m.Login(context.Background(), "ana", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	m.Logout(context.Background())

	if m.LoggedIn() || m.Cart() != nil {
		t.Error("Expected logged-out manager with no cart")
	}
	if auth.token != "" {
		t.Error("Bearer token not cleared")
	}
	if _, ok := store.sessions[sess.ID]; ok {
		t.Error("Persisted session not dropped")
	}
}

func TestExpire(t *testing.T) {
	auth := &fakeAuth{result: &api.LoginResult{
		AccessToken: "tok123",
		User:        api.User{ID: 1, Username: "ana", Role: "manager"},
	}}
	m := newTestManager(auth, newMemStore())
	if _, err := m.Login(context.Background(), "ana", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if m.Expire(context.Background(), errors.New("other error")) {
		t.Error("Expire must ignore unrelated errors")
	}
	if !m.LoggedIn() {
		t.Fatal("Unrelated error must not end the session")
	}

	wrapped := errors.Join(errors.New("fetch products"), api.ErrSessionExpired)
	if !m.Expire(context.Background(), wrapped) {
		t.Error("Expire must recognize a wrapped ErrSessionExpired")
	}
	if m.LoggedIn() {
		t.Error("Session must be torn down after expiry")
	}
}
