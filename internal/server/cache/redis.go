package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// compareAndSwapScript: KEYS[1] key, ARGV old, next, ttl in ms (0 keeps no expiry).
var compareAndSwapScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// addToSetScript: KEYS[1] set, ARGV now ms, member expiry ms, member.
// Pruning, insert and the set expiry run as one step. The set expiry only
// moves when the new member outlives every other one, so the set never
// expires before its newest member.
var addToSetScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
local top = redis.call('ZREVRANGE', KEYS[1], 0, 0)
if top[1] == ARGV[3] then
  redis.call('PEXPIREAT', KEYS[1], ARGV[2])
end
return 1
`)

// RedisStore implements Store on top of Redis.
//
// Sets are kept as sorted sets scored by the member's expiry in unix
// milliseconds; expired members are ignored by IsMember and pruned on every
// AddToSet. The set key itself expires once its newest member would have.
// Multi-step updates run as Lua scripts so each is atomic on the server.
type RedisStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) (bool, error) {
	n, err := compareAndSwapScript.Run(ctx, s.rdb, []string{key}, old, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare and swap: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) AddToSet(ctx context.Context, setKey, member string, ttl time.Duration) error {
	now := s.now()
	expiresAt := now.Add(ttl)

	err := addToSetScript.Run(ctx, s.rdb, []string{setKey},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expiresAt.UnixMilli(), 10),
		member,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

func (s *RedisStore) IsMember(ctx context.Context, setKey, member string) (bool, error) {
	score, err := s.rdb.ZScore(ctx, setKey, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis zscore: %w", err)
	}
	return int64(score) > s.now().UnixMilli(), nil
}
