package school

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserGetter is the single lookup RoleCache needs from the store.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (User, error)
}

// RoleCache backs the access gate's strict mode: it resolves a user's current
// role through Redis with a short TTL so deleted accounts and role drift are
// caught without a database hit per request.
type RoleCache struct {
	client *redis.Client
	store  UserGetter
	ttl    time.Duration
}

// NewRoleCache creates a cache-aside role resolver. client may be nil, in
// which case every resolve goes to the store.
func NewRoleCache(client *redis.Client, store UserGetter, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RoleCache{client: client, store: store, ttl: ttl}
}

// Resolve returns the user's current role, or ErrNotFound when the account
// is gone.
func (c *RoleCache) Resolve(ctx context.Context, userID string) (string, error) {
	key := "role:" + userID
	if c.client != nil {
		if role, err := c.client.Get(ctx, key).Result(); err == nil && role != "" {
			return role, nil
		}
	}
	u, err := c.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if c.client != nil {
		// best effort; a cold cache only costs a lookup
		_ = c.client.Set(ctx, key, u.Role, c.ttl).Err()
	}
	return u.Role, nil
}

// Invalidate drops the cached role, forcing the next resolve to the store.
func (c *RoleCache) Invalidate(ctx context.Context, userID string) {
	if c.client != nil {
		_ = c.client.Del(ctx, "role:"+userID).Err()
	}
}
