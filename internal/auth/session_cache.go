package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant-pos/internal/models"
)

const (
	// SessionKeyPrefix namespaces cached sessions in Redis.
	SessionKeyPrefix = "pos_session:"
	// MaxCacheTTL bounds how long a cached session is trusted without a DB read.
	MaxCacheTTL = 5 * time.Minute
)

// CachedSession is a verified principal with its session expiry.
type CachedSession struct {
	Principal models.Principal `json:"principal"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// IsValid checks that the cached session has not expired.
func (cs *CachedSession) IsValid(now time.Time) bool {
	if cs == nil || cs.Principal.UserID == "" {
		return false
	}
	return now.Before(cs.ExpiresAt)
}

// SessionCache keeps verified sessions so Verify can skip the database.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*CachedSession, error)
	Set(ctx context.Context, sessionID string, cs *CachedSession) error
	Delete(ctx context.Context, sessionIDs ...string) error
}

func cacheTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return ttl
}

// RedisSessionCache implements SessionCache using Redis
type RedisSessionCache struct {
	Client *redis.Client
}

func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{Client: client}
}

// Get returns nil without error on a miss or an expired entry.
func (c *RedisSessionCache) Get(ctx context.Context, sessionID string) (*CachedSession, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, SessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var cs CachedSession
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}
	if !cs.IsValid(time.Now()) {
		return nil, nil
	}
	return &cs, nil
}

func (c *RedisSessionCache) Set(ctx context.Context, sessionID string, cs *CachedSession) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	ttl := cacheTTL(cs.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(cs)
	if err != nil {
		return fmt.Errorf("failed to marshal cached session: %w", err)
	}
	if err := c.Client.Set(ctx, SessionKeyPrefix+sessionID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) Delete(ctx context.Context, sessionIDs ...string) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if len(sessionIDs) == 0 {
		return nil
	}
	keys := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		keys[i] = SessionKeyPrefix + id
	}
	return c.Client.Del(ctx, keys...).Err()
}

// MemorySessionCache is the in-process cache used when Redis is not configured.
type MemorySessionCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	session CachedSession
	until   time.Time
}

func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{entries: make(map[string]memoryEntry)}
}

func (c *MemorySessionCache) Get(_ context.Context, sessionID string) (*CachedSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[sessionID]
	now := time.Now()
	if !ok || now.After(e.until) || !e.session.IsValid(now) {
		delete(c.entries, sessionID)
		return nil, nil
	}
	cs := e.session
	return &cs, nil
}

func (c *MemorySessionCache) Set(_ context.Context, sessionID string, cs *CachedSession) error {
	ttl := cacheTTL(cs.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[sessionID] = memoryEntry{session: *cs, until: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemorySessionCache) Delete(_ context.Context, sessionIDs ...string) error {
	c.mu.Lock()
	for _, id := range sessionIDs {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	return nil
}
