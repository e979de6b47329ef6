package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// ErrLockHeld is returned by RunExclusive when another replica holds the key.
var ErrLockHeld = errors.New("lock_held")

// Locker serializes scheduler jobs across replicas.
type Locker struct {
	client *redis.Client
}

// NewLocker returns nil without redis, which makes every job run locally.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// RunExclusive runs fn while holding key for at most ttl. A nil Locker runs fn
// directly.
func (l *Locker) RunExclusive(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	if key == "" || ttl <= 0 {
		return errors.New("lock requires a key and a positive ttl")
	}

	owner := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	defer func() {
		// The job context may already be cancelled by its timeout.
		_ = unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, owner).Err()
	}()
	return fn(ctx)
}
