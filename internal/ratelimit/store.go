package ratelimit

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/masstrack/internal/clock"
)

// incrWindowScript increments a counter and starts its window on the first hit.
const incrWindowScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

// AttemptStore is a shared counter store whose keys expire.
type AttemptStore interface {
	// Incr adds one to key, starting a window of the given length if key is new.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Get returns the current count and the time left in its window.
	Get(ctx context.Context, key string) (int64, time.Duration, error)
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		script: redis.NewScript(incrWindowScript),
	}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := s.script.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, errInvalidScriptResponse
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	return count, ttl, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore keeps counters in process. Counters are not shared between
// replicas.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &MemoryStore{clock: c, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	s.entries[key] = entry
	return entry.count, entry.expiresAt.Sub(now), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	entry, ok := s.entries[key]
	if !ok {
		return 0, 0, nil
	}
	if !now.Before(entry.expiresAt) {
		delete(s.entries, key)
		return 0, 0, nil
	}
	return entry.count, entry.expiresAt.Sub(now), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
