// Package lock provides short-lived mutual exclusion keyed by resource, backed
// by Redis when configured and by process memory otherwise.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"restaurant-pos/internal/utils"
)

const (
	DefaultTTL  = 10 * time.Second
	DefaultWait = 3 * time.Second
	retryEvery  = 50 * time.Millisecond
)

type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

func BillKey(billID string) string   { return "pos_lock:bill:" + billID }
func TableKey(tableID string) string { return "pos_lock:table:" + tableID }

// WithLock runs fn while holding key, waiting up to wait for a competing
// holder to finish. It returns a conflict error when the key stays taken.
func WithLock(ctx context.Context, l Locker, key string, wait time.Duration, fn func() error) error {
	owner := utils.NewID()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.Acquire(ctx, key, owner, DefaultTTL)
		if err != nil {
			return utils.Internal("acquire lock", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return utils.Conflict("resource is busy, retry shortly")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryEvery):
		}
	}
	// Release on a fresh context so a cancelled request still frees the key.
	defer l.Release(context.Background(), key, owner)
	return fn()
}

// ---------------- REDIS ----------------

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	Client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client}
}

// Acquire sets key to owner if nobody holds it.
func (r *Redis) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, owner, ttl).Result()
}

// Release deletes key only while owner still holds it.
func (r *Redis) Release(ctx context.Context, key, owner string) error {
	err := releaseScript.Run(ctx, r.Client, []string{key}, owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// ---------------- MEMORY ----------------

type memoryEntry struct {
	owner   string
	expires time.Time
}

// Memory is the single-process fallback used when Redis is not configured.
type Memory struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]memoryEntry)}
}

func (m *Memory) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, ok := m.locks[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	m.locks[key] = memoryEntry{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (m *Memory) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.locks[key]; ok && e.owner == owner {
		delete(m.locks, key)
	}
	return nil
}
