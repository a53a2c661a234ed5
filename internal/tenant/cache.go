package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RoleSource loads roles from the database on a cache miss.
type RoleSource interface {
	RolesForUser(ctx context.Context, companyID, userID int64) ([]string, error)
}

// RoleCache is a read-through Redis cache over company membership.
// Misses are collapsed with singleflight so a burst of requests for the
// same user hits the database once. Non-membership is cached too.
type RoleCache struct {
	client *redis.Client
	source RoleSource
	ttl    time.Duration
	group  singleflight.Group
}

// NewRoleCache constructs the cache.
func NewRoleCache(client *redis.Client, source RoleSource, ttl time.Duration) *RoleCache {
	return &RoleCache{client: client, source: source, ttl: ttl}
}

type cachedRoles struct {
	Member bool     `json:"member"`
	Roles  []string `json:"roles"`
}

func roleKey(companyID, userID int64) string {
	return fmt.Sprintf("tenant:roles:%d:%d", companyID, userID)
}

// Resolve returns the roles the user holds in the company and whether
// the user is a member at all.
func (c *RoleCache) Resolve(ctx context.Context, companyID, userID int64) ([]string, bool, error) {
	key := roleKey(companyID, userID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var entry cachedRoles
		if err := json.Unmarshal(payload, &entry); err == nil {
			return entry.Roles, entry.Member, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down degrades to a database read, not a failure.
		roles, err := c.source.RolesForUser(ctx, companyID, userID)
		if err != nil {
			return nil, false, err
		}
		return roles, len(roles) > 0, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		roles, err := c.source.RolesForUser(ctx, companyID, userID)
		if err != nil {
			return nil, err
		}
		entry := cachedRoles{Member: len(roles) > 0, Roles: roles}
		if payload, err := json.Marshal(entry); err == nil {
			_ = c.client.Set(ctx, key, payload, c.ttl).Err()
		}
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	entry := v.(cachedRoles)
	return entry.Roles, entry.Member, nil
}

// Invalidate drops the cached entry after a membership change.
func (c *RoleCache) Invalidate(ctx context.Context, companyID, userID int64) error {
	return c.client.Del(ctx, roleKey(companyID, userID)).Err()
}
