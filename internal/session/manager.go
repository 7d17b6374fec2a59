package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pawcart/internal/api"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// Authenticator performs the login exchange.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (api.LoginResult, error)
}

// LoginListener runs after a successful login, in registration order.
type LoginListener func(ctx context.Context, u types.User)

// Manager tracks whether the client is authenticated and announces changes.
type Manager struct {
	store  *Store
	auth   Authenticator
	logger *zap.Logger

	mu       sync.Mutex
	onLogin  []LoginListener
	onLogout []func()
}

// NewManager returns a Manager storing credentials in store.
func NewManager(store *Store, auth Authenticator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, auth: auth, logger: logger}
}

// IsAuthenticated reports whether an access token is stored. Storage errors
// count as unauthenticated.
func (m *Manager) IsAuthenticated() bool {
	c, err := m.store.Tokens()
	if err != nil {
		m.logger.Warn("read credentials", zap.Error(err))
		return false
	}
	return c.AccessToken != ""
}

// Current returns the stored user profile when authenticated.
func (m *Manager) Current() (types.User, bool) {
	if !m.IsAuthenticated() {
		return types.User{}, false
	}
	u, ok, err := m.store.User()
	if err != nil {
		m.logger.Warn("read user", zap.Error(err))
		return types.User{}, false
	}
	return u, ok
}

// OnLogin registers fn to run after every successful login.
func (m *Manager) OnLogin(fn LoginListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogin = append(m.onLogin, fn)
}

// OnLogout registers fn to run after every logout.
func (m *Manager) OnLogout(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

// Login authenticates, stores the session, and runs the login listeners.
func (m *Manager) Login(ctx context.Context, username, password string) (types.User, error) {
	res, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return types.User{}, err
	}
	if err := m.store.SetTokens(res.Credentials); err != nil {
		return types.User{}, fmt.Errorf("store credentials: %w", err)
	}
	if err := m.store.SetUser(res.User); err != nil {
		return types.User{}, fmt.Errorf("store user: %w", err)
	}
	m.logger.Info("logged in", zap.String("username", res.User.Username), zap.String("role", res.User.Role))

	m.mu.Lock()
	listeners := append([]LoginListener(nil), m.onLogin...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, res.User)
	}
	return res.User, nil
}

// Logout clears the stored session and runs the logout listeners.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("logged out")

	m.mu.Lock()
	listeners := append([]func(){}, m.onLogout...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return nil
}
