package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when the lease expired or belongs to someone else
var ErrLockNotHeld = errors.New("lock not held")

// Both scripts act only while the key still carries the holder's token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// Lock is a single-holder lease on a key
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// TryLock acquires key for ttl. It returns (nil, nil) when another holder has it.
func (c *Client) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{rdb: c.rdb, key: key, token: token}, nil
}

// Release frees the lock if it is still ours
func (l *Lock) Release(ctx context.Context) error {
	return l.run(ctx, releaseScript, "release")
}

// Extend pushes the lease out to ttl from now if it is still ours
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	return l.run(ctx, extendScript, "extend", ttl.Milliseconds())
}

func (l *Lock) run(ctx context.Context, script *redis.Script, op string, args ...interface{}) error {
	n, err := script.Run(ctx, l.rdb, []string{l.key}, append([]interface{}{l.token}, args...)...).Int64()
	if err != nil {
		return fmt.Errorf("failed to %s lock %s: %w", op, l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Key returns the locked key
func (l *Lock) Key() string {
	return l.key
}
