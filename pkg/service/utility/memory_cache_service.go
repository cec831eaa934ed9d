/*
 * @Description: 内存缓存服务实现（用于 Redis 不可用时的降级方案）
 * @Author: 安知鱼
 * @Date: 2025-10-05 00:00:00
 * @LastEditTime: 2026-10-15 01:10:52
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // 零值表示永不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryCacheService 是进程内的过期缓存，后台定期清理过期项
type memoryCacheService struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCacheService 创建内存缓存服务实例，每分钟清理一次过期项
func NewMemoryCacheService() CacheService {
	return newMemoryCacheService(time.Minute, time.Now)
}

func newMemoryCacheService(sweepEvery time.Duration, now func() time.Time) *memoryCacheService {
	s := &memoryCacheService{
		entries: make(map[string]memoryEntry),
		now:     now,
		done:    make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

func (s *memoryCacheService) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep 删除所有已过期的项，返回删除数量
func (s *memoryCacheService) sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *memoryCacheService) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return "", nil
	}
	return e.value, nil
}

func (s *memoryCacheService) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *memoryCacheService) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryCacheService) Backend() string { return BackendMemory }

// Close 停止后台清理，可重复调用
func (s *memoryCacheService) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}
