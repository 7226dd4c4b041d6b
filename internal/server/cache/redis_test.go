package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_SetGet(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "refresh:42", "tok-1", time.Hour))

	v, err := s.Get(ctx, "refresh:42")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)
}

func TestRedisStore_SetOverwrites(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "refresh:42", "tok-1", time.Hour))
	require.NoError(t, s.Set(ctx, "refresh:42", "tok-2", 2*time.Hour))

	v, err := s.Get(ctx, "refresh:42")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)
	assert.Equal(t, 2*time.Hour, mr.TTL("refresh:42"))
}

func TestRedisStore_GetMissingAndExpired(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "refresh:nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Set(ctx, "refresh:42", "tok", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err = s.Get(ctx, "refresh:42")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "refresh:42", "tok", time.Hour))
	require.NoError(t, s.Delete(ctx, "refresh:42"))
	require.NoError(t, s.Delete(ctx, "refresh:42"))

	_, err := s.Get(ctx, "refresh:42")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisStore_SetMembersExpireIndividually(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "short", time.Minute))
	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "long", time.Hour))

	ok, err := s.IsMember(ctx, "jwt:blacklist", "short")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)

	ok, err = s.IsMember(ctx, "jwt:blacklist", "short")
	require.NoError(t, err)
	assert.False(t, ok, "short member must have expired")

	ok, err = s.IsMember(ctx, "jwt:blacklist", "long")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsMember(ctx, "jwt:blacklist", "unrelated")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_AddToSetPrunesExpired(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "old", time.Minute))
	now = now.Add(5 * time.Minute)
	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "new", time.Minute))

	members, err := mr.ZMembers("jwt:blacklist")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)
}

func TestRedisStore_SetKeyKeepsLongestLifetime(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "long", time.Hour))
	require.NoError(t, s.AddToSet(ctx, "jwt:blacklist", "short", time.Minute))

	ttl := mr.TTL("jwt:blacklist")
	assert.Greater(t, ttl, 30*time.Minute)
}

func TestRedisStore_ConcurrentAddsKeepLongestLifetime(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AddToSet(ctx, "jwt:blacklist", fmt.Sprintf("tok-%d", i), time.Duration(i)*time.Minute))
		}(i)
	}
	wg.Wait()

	ttl := mr.TTL("jwt:blacklist")
	assert.Greater(t, ttl, 19*time.Minute, "set must live as long as its newest member")
	assert.LessOrEqual(t, ttl, 20*time.Minute)
}

func TestRedisStore_CompareAndSwap(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := s.CompareAndSwap(ctx, "refresh:42", "tok-1", "tok-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "absent key never swaps")
	assert.False(t, mr.Exists("refresh:42"))

	require.NoError(t, s.Set(ctx, "refresh:42", "tok-1", time.Minute))

	ok, err = s.CompareAndSwap(ctx, "refresh:42", "stale", "tok-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CompareAndSwap(ctx, "refresh:42", "tok-1", "tok-2", 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := s.Get(ctx, "refresh:42")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", v)
	assert.Equal(t, 2*time.Hour, mr.TTL("refresh:42"))

	ok, err = s.CompareAndSwap(ctx, "refresh:42", "tok-1", "tok-3", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "a swapped-out value cannot win again")
}

func TestRedisStore_CompareAndSwapSingleWinner(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "refresh:42", "tok-1", time.Hour))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.CompareAndSwap(ctx, "refresh:42", "tok-1", fmt.Sprintf("next-%d", i), time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()
	ctx := context.Background()

	err := s.Set(ctx, "k", "v", time.Minute)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorNotFound))

	_, err = s.Get(ctx, "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorNotFound))

	_, err = s.IsMember(ctx, "jwt:blacklist", "x")
	require.Error(t, err)

	_, err = s.CompareAndSwap(ctx, "k", "v", "w", time.Minute)
	require.Error(t, err)

	require.Error(t, s.AddToSet(ctx, "jwt:blacklist", "x", time.Minute))
}
