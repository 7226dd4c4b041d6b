package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) alive(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// MemoryStore is an in-process Store for local runs and tests. It offers the
// same expiry semantics as RedisStore but nothing survives a restart and
// nothing is shared between instances.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]entry
	sets map[string]map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]entry),
		sets: make(map[string]map[string]time.Time),
		now:  time.Now,
	}
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.keys[key] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.keys[key]
	if !ok {
		return "", common.ErrorNotFound
	}
	if !e.alive(s.now()) {
		delete(s.keys, key)
		return "", common.ErrorNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key, old, next string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.keys[key]
	if !ok || !e.alive(now) || e.value != old {
		return false, nil
	}

	e = entry{value: next}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.keys[key] = e
	return true, nil
}

func (s *MemoryStore) AddToSet(_ context.Context, setKey, member string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	set, ok := s.sets[setKey]
	if !ok {
		set = make(map[string]time.Time)
		s.sets[setKey] = set
	}
	for m, exp := range set {
		if !now.Before(exp) {
			delete(set, m)
		}
	}
	set[member] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) IsMember(_ context.Context, setKey, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.sets[setKey][member]
	if !ok {
		return false, nil
	}
	return s.now().Before(exp), nil
}
