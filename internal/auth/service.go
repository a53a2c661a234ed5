package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// UserFinder loads accounts for credential checks.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (User, error)
}

// Service implements login, logout, and token authentication.
type Service struct {
	users  UserFinder
	tokens *TokenStore
	log    *slog.Logger
}

// NewService constructs the auth service.
func NewService(users UserFinder, tokens *TokenStore, log *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, log: log}
}

// Login verifies the credentials and issues a bearer token. Unknown
// accounts, wrong passwords, and disabled accounts all collapse into
// ErrInvalidCredentials so the response leaks nothing.
func (s *Service) Login(ctx context.Context, email, password string) (string, Identity, error) {
	if email == "" || password == "" {
		return "", Identity{}, shared.ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", Identity{}, shared.ErrInvalidCredentials
		}
		return "", Identity{}, err
	}
	if !user.IsActive {
		return "", Identity{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Identity{}, shared.ErrInvalidCredentials
	}

	id := Identity{UserID: user.ID, Email: user.Email}
	token, err := s.tokens.Issue(ctx, id)
	if err != nil {
		return "", Identity{}, err
	}
	s.log.InfoContext(ctx, "login", slog.Int64("user_id", user.ID))
	return token, id, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to an identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, &shared.AuthenticationError{Reason: "missing token"}
	}
	id, ok, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, &shared.AuthenticationError{Reason: "invalid or expired token"}
	}
	return id, nil
}

// HashPassword produces a bcrypt digest for account provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
