package store

import (
	"TodayInHistory/backend/go/internal/models"
	"TodayInHistory/backend/go/pkg/util"
	"context"
	"sync"
	"time"
)

// MemoryStore 是进程内的 Store 实现，适合单实例部署。
type MemoryStore struct {
	mu        sync.Mutex
	used      map[string]struct{}
	lastReset string
	cache     *util.LRUCache[string, models.CacheEntry]
}

// NewMemoryStore 创建内存存储。cacheTTL 为 0 表示缓存条目永不过期。
func NewMemoryStore(cacheCapacity int, cacheTTL time.Duration, now func() time.Time) (*MemoryStore, error) {
	cache, err := util.NewWithConfig[string, models.CacheEntry](util.CacheConfig{
		Capacity: cacheCapacity,
		TTL:      cacheTTL,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		used:  make(map[string]struct{}),
		cache: cache,
	}, nil
}

func (s *MemoryStore) ResetIfNewDay(_ context.Context, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastReset == day {
		return false, nil
	}
	first := s.lastReset == ""
	s.lastReset = day
	if first {
		return false, nil
	}
	s.clearLocked()
	return true, nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.used[fingerprint]; ok {
		return true, nil
	}
	s.used[fingerprint] = struct{}{}
	return false, nil
}

func (s *MemoryStore) PutCache(_ context.Context, entry models.CacheEntry) error {
	s.cache.Put(entry.ID, entry)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (models.HealthStats, error) {
	s.mu.Lock()
	used := len(s.used)
	s.mu.Unlock()
	return models.HealthStats{CacheSize: s.cache.Len(), UsedFactsCount: used}, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) clearLocked() {
	s.used = make(map[string]struct{})
	s.cache.Purge()
}
