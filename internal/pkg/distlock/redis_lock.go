package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var randRead = rand.Read

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLock provides distributed locking via Redis using SET NX with TTL.
// A random ownership value and a Lua release script keep one instance from
// releasing a lock held by another.
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
	err    error
}

// NewRedisLock creates a new distributed lock backed by Redis. If no
// random ownership value can be drawn, every Acquire fails.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	l := &RedisLock{
		client: client,
		key:    fmt.Sprintf("formsync:lock:%s", key),
		ttl:    ttl,
	}
	b := make([]byte, 16)
	if _, err := randRead(b); err != nil {
		l.err = fmt.Errorf("lock %s: ownership value: %w", l.key, err)
		return l
	}
	l.value = hex.EncodeToString(b)
	return l
}

// Acquire tries to acquire the lock. Returns true if successful.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	result, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return result, nil
}

// Release releases the lock only if we still own it.
func (l *RedisLock) Release(ctx context.Context) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	return err
}
