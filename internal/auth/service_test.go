package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeUsers struct {
	users map[string]User
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (User, error) {
	u, ok := f.users[email]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func newAuthService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	users := &fakeUsers{users: map[string]User{
		"buyer@example.com":    {ID: 42, Email: "buyer@example.com", PasswordHash: hash, IsActive: true},
		"disabled@example.com": {ID: 43, Email: "disabled@example.com", PasswordHash: hash, IsActive: false},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(users, NewTokenStore(client, time.Hour), log), mr
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, id, err := svc.Login(ctx, "buyer@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, int64(42), id.UserID)

	resolved, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, id, resolved)
}

func TestLoginFailuresCollapse(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"buyer@example.com", "wrong"},
		{"nobody@example.com", "s3cret"},
		{"disabled@example.com", "s3cret"},
		{"", ""},
	} {
		_, _, err := svc.Login(ctx, tc.email, tc.password)
		require.True(t, errors.Is(err, shared.ErrInvalidCredentials), "email=%s", tc.email)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "buyer@example.com", "s3cret")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Authenticate(ctx, token)
	var authn *shared.AuthenticationError
	require.ErrorAs(t, err, &authn)
}

func TestTokenExpiry(t *testing.T) {
	svc, mr := newAuthService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "buyer@example.com", "s3cret")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.Authenticate(ctx, token)
	var authn *shared.AuthenticationError
	require.ErrorAs(t, err, &authn)
}
