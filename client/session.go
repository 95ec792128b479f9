package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"projecthub/normalize"
)

// Session is a signed-in user with their access token.
type Session struct {
	Token     string         `json:"token"`
	User      normalize.User `json:"user"`
	ExpiresAt time.Time      `json:"expiresAt,omitempty"`
}

// SessionStore persists the session between runs. Load returns nil, nil
// when nothing is stored.
type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// FileStore keeps the session as JSON in a file readable only by the owner.
type FileStore struct {
	Path string
}

// DefaultFileStore stores the session under the user's config directory.
func DefaultFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &FileStore{Path: filepath.Join(dir, "projecthub", "session.json")}, nil
}

func (f *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("read session %s: %w", f.Path, err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *FileStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in and persists the session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	v, err := c.do(ctx, fasthttp.MethodPost, "/api/auth/login", credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return c.startSession(v)
}

// Register creates an account, signs in and persists the session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	v, err := c.do(ctx, fasthttp.MethodPost, "/api/auth/register", credentials{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return c.startSession(v)
}

func (c *Client) startSession(v any) (*Session, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("unexpected auth response")
	}
	top := normalize.Raw(obj)
	token := top.String("token", "accessToken")
	if token == "" {
		return nil, errors.New("auth response carried no token")
	}

	// The user fields sit either beside the token or in a nested user object.
	userRaw, _ := normalize.Object(top, "user")

	s := &Session{Token: token, User: normalize.NormalizeUser(userRaw)}
	if t, ok := top.Time("expiresAt"); ok {
		s.ExpiresAt = t
	}
	if err := c.store.Save(s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.setSession(s)
	c.logger.WithField("user_id", s.User.ID).Info("Signed in")
	return s, nil
}

// Logout tells the server and clears the stored session. The local session
// is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var serverErr error
	if c.Session() != nil {
		_, serverErr = c.do(ctx, fasthttp.MethodPost, "/api/auth/logout", nil)
	}
	c.setSession(nil)
	if err := c.store.Clear(); err != nil {
		return err
	}
	if serverErr != nil && !IsStatus(serverErr, fasthttp.StatusUnauthorized) {
		c.logger.WithError(serverErr).Warn("Server logout failed")
	}
	return nil
}

// Restore loads the stored session and checks it against the profile
// endpoint, refreshing the cached user. A rejected token clears the store
// and yields ErrNoSession.
func (c *Client) Restore(ctx context.Context) (*Session, error) {
	s, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if s == nil || strings.TrimSpace(s.Token) == "" {
		return nil, ErrNoSession
	}
	c.setSession(s)

	v, err := c.do(ctx, fasthttp.MethodGet, "/api/auth/profile", nil)
	if err != nil {
		if IsStatus(err, fasthttp.StatusUnauthorized) {
			c.setSession(nil)
			if clearErr := c.store.Clear(); clearErr != nil {
				return nil, clearErr
			}
			return nil, ErrNoSession
		}
		return nil, err
	}
	if raw, ok := normalize.Object(v, "user"); ok {
		s.User = normalize.NormalizeUser(raw)
		if err := c.store.Save(s); err != nil {
			return nil, err
		}
		c.setSession(s)
	}
	return s, nil
}

// Profile fetches the signed-in user.
func (c *Client) Profile(ctx context.Context) (normalize.User, error) {
	if c.Session() == nil {
		return normalize.User{}, ErrNoSession
	}
	v, err := c.do(ctx, fasthttp.MethodGet, "/api/auth/profile", nil)
	if err != nil {
		return normalize.User{}, err
	}
	raw, _ := normalize.Object(v, "user")
	return normalize.NormalizeUser(raw), nil
}

// ProfileInput carries the profile fields to change. Nil fields are left out.
type ProfileInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// UpdateProfile changes the signed-in user's name or email and stores the
// refreshed user in the session.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (normalize.User, error) {
	s := c.Session()
	if s == nil {
		return normalize.User{}, ErrNoSession
	}
	v, err := c.do(ctx, fasthttp.MethodPut, "/api/auth/profile", in)
	if err != nil {
		return normalize.User{}, err
	}
	raw, _ := normalize.Object(v, "user")
	user := normalize.NormalizeUser(raw)

	updated := *s
	updated.User = user
	if err := c.store.Save(&updated); err != nil {
		return user, fmt.Errorf("save session: %w", err)
	}
	c.setSession(&updated)
	return user, nil
}

type passwordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdatePassword replaces the signed-in user's password. A wrong current
// password comes back as a 401 APIError; the session stays valid.
func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	if c.Session() == nil {
		return ErrNoSession
	}
	_, err := c.do(ctx, fasthttp.MethodPut, "/api/auth/update-password", passwordChange{CurrentPassword: current, NewPassword: next})
	return err
}
