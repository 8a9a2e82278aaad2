// Package service provides the authentication and catalog workflows,
// delegating persistence to repository and session interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/atinyakov/glbkeeper/internal/repository"
	"go.uber.org/zap"
)

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	// Login returns the user matching both fields or repository.ErrNotFound.
	Login(ctx context.Context, username, password string) (*models.User, error)
	// Insert appends a user and assigns its ID.
	Insert(ctx context.Context, u *models.User) error
	// Count returns the number of stored users.
	Count(ctx context.Context) (int64, error)
}

// SessionStore persists the logged in identity.
type SessionStore interface {
	Save(userID int64, username, role string) error
	Clear() error
	IsLoggedIn() bool
	Role() (string, bool)
	Username() (string, bool)
	UserID() (int64, bool)
}

// DefaultAccounts are inserted the first time the store is opened.
var DefaultAccounts = []models.User{
	{Username: "admin", Password: "admin123", Role: models.RoleAdmin},
	{Username: "user", Password: "user123", Role: models.RoleUser},
}

// Identity is the authenticated user as recorded in the session.
type Identity struct {
	UserID   int64
	Username string
	Role     models.Role
}

// IsAdmin reports whether the identity may import and delete models.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// AuthService implements login, logout and role checks.
type AuthService struct {
	users    UserRepository
	sessions SessionStore
	log      *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserRepository, sessions SessionStore, log *zap.Logger) *AuthService {
	return &AuthService{users: users, sessions: sessions, log: log}
}

// Seed inserts DefaultAccounts when the user table is empty.
func (s *AuthService) Seed(ctx context.Context) error {
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, acc := range DefaultAccounts {
		u := acc
		if err := s.users.Insert(ctx, &u); err != nil {
			return fmt.Errorf("seed %s: %w", acc.Username, err)
		}
		s.log.Info("seeded default account", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
	return nil
}

// Login checks the credentials and, on success, saves the session.
// Surrounding whitespace is trimmed from both fields.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	u, err := s.users.Login(ctx, username, password)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.sessions.Save(u.ID, u.Username, string(u.Role)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.log.Info("user logged in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Logout clears the session.
func (s *AuthService) Logout() error {
	return s.sessions.Clear()
}

// Current returns the identity of the logged in user.
func (s *AuthService) Current() (Identity, error) {
	if !s.sessions.IsLoggedIn() {
		return Identity{}, ErrNotLoggedIn
	}
	id, _ := s.sessions.UserID()
	name, _ := s.sessions.Username()
	role, _ := s.sessions.Role()

	ident := Identity{UserID: id, Username: name, Role: models.Role(role)}
	if !ident.Role.Valid() {
		return ident, ErrInvalidRole
	}
	return ident, nil
}

// Authorize returns the current identity if it holds the required role.
// Admins satisfy every requirement.
func (s *AuthService) Authorize(required models.Role) (Identity, error) {
	ident, err := s.Current()
	if err != nil {
		return ident, err
	}
	if required == models.RoleAdmin && !ident.IsAdmin() {
		return ident, ErrForbidden
	}
	return ident, nil
}
