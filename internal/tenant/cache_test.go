package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	roles map[string][]string
	calls int
}

func (s *countingSource) RolesForUser(_ context.Context, companyID, userID int64) ([]string, error) {
	s.calls++
	return s.roles[roleKey(companyID, userID)], nil
}

func newRoleCache(t *testing.T) (*RoleCache, *countingSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	source := &countingSource{roles: map[string][]string{
		roleKey(1, 42): {"accounts", "warehouse_manager"},
	}}
	return NewRoleCache(client, source, time.Minute), source, mr
}

func TestResolveReadsThroughOnce(t *testing.T) {
	cache, source, _ := newRoleCache(t)
	ctx := context.Background()

	roles, member, err := cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)
	require.True(t, member)
	require.Equal(t, []string{"accounts", "warehouse_manager"}, roles)
	require.Equal(t, 1, source.calls)

	// second hit is served from Redis
	roles, member, err = cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)
	require.True(t, member)
	require.Len(t, roles, 2)
	require.Equal(t, 1, source.calls)
}

func TestResolveCachesNonMembership(t *testing.T) {
	cache, source, _ := newRoleCache(t)
	ctx := context.Background()

	_, member, err := cache.Resolve(ctx, 2, 42)
	require.NoError(t, err)
	require.False(t, member)

	_, member, err = cache.Resolve(ctx, 2, 42)
	require.NoError(t, err)
	require.False(t, member)
	require.Equal(t, 1, source.calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	cache, source, _ := newRoleCache(t)
	ctx := context.Background()

	_, _, err := cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)

	source.roles[roleKey(1, 42)] = []string{"admin"}
	require.NoError(t, cache.Invalidate(ctx, 1, 42))

	roles, member, err := cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)
	require.True(t, member)
	require.Equal(t, []string{"admin"}, roles)
	require.Equal(t, 2, source.calls)
}

func TestExpiredEntryReloads(t *testing.T) {
	cache, source, mr := newRoleCache(t)
	ctx := context.Background()

	_, _, err := cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, _, err = cache.Resolve(ctx, 1, 42)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
}
