// Package service holds the authentication and account-management logic
// shared by the HTTP handlers and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProtectedUser      = errors.New("user is protected")
)

// DefaultSessionTTL matches the original deployment: one day.
const DefaultSessionTTL = 24 * time.Hour

// AuthService implements login, session validation, and account management
// on top of the store. Sessions are opaque random tokens persisted
// server-side, so they can be revoked (logout, password change, user delete).
type AuthService struct {
	store      *store.Store
	sessionTTL time.Duration
}

// NewAuthService creates an AuthService. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewAuthService(st *store.Store, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{store: st, sessionTTL: ttl}
}

// Login verifies the credentials and, on success, creates a new session.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &model.Session{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return user, sess, nil
}

// Validate resolves a session token to its user. Expired sessions are
// deleted on sight and reported as invalid credentials.
func (s *AuthService) Validate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}

	if sess.Expired(time.Now().UTC()) {
		_ = s.store.DeleteSession(ctx, token)
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up session user: %w", err)
	}
	return user, nil
}

// Logout terminates the session. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// SessionTTL returns the configured session lifetime, used to set the cookie
// max-age alongside the server-side expiry.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword re-hashes the user's password and revokes all of their
// sessions, so every logged-in browser has to authenticate again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.store.DeleteSessionsForUser(ctx, userID)
}

// DeleteUser removes an account. The built-in admin account is refused
// server-side regardless of who asks; the UI restriction alone would leave
// the API open.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Protected() {
		return ErrProtectedUser
	}
	return s.store.DeleteUser(ctx, userID)
}

// EnsureDefaultAdmin seeds the admin/admin account when no admin exists yet.
// Returns true when the account was created.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	hasAdmin, err := s.store.HasAnyAdmin(ctx)
	if err != nil {
		return false, err
	}
	if hasAdmin {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, model.AdminUsername, model.AdminUsername, true); err != nil {
		// Lost a race with another instance seeding the same account.
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
