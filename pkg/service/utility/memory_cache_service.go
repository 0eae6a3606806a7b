/*
 * @Description: 内存缓存服务实现（用于 Redis 不可用时的降级方案）
 * @Author: 安知鱼
 * @Date: 2025-10-05 00:00:00
 * @LastEditTime: 2025-10-17 17:06:40
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"
)

// cacheItem 缓存项结构
type cacheItem struct {
	value      string
	expiration time.Time
	hasExpiry  bool
}

func (item *cacheItem) isExpired(now time.Time) bool {
	return item.hasExpiry && now.After(item.expiration)
}

// memoryCacheService 是基于内存的缓存服务实现
type memoryCacheService struct {
	data     sync.Map
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewMemoryCacheService 创建内存缓存服务实例
func NewMemoryCacheService() CacheService {
	return newMemoryCacheService(time.Now)
}

func newMemoryCacheService(now func() time.Time) *memoryCacheService {
	svc := &memoryCacheService{
		ticker: time.NewTicker(1 * time.Minute), // 每分钟清理一次过期数据
		done:   make(chan struct{}),
		now:    now,
	}
	go svc.cleanupExpired()
	return svc
}

// cleanupExpired 定期清理过期的缓存项
func (s *memoryCacheService) cleanupExpired() {
	for {
		select {
		case <-s.ticker.C:
			now := s.now()
			s.data.Range(func(key, value interface{}) bool {
				if item, ok := value.(*cacheItem); ok && item.isExpired(now) {
					s.data.Delete(key)
				}
				return true
			})
		case <-s.done:
			return
		}
	}
}

// Stop 停止清理任务，可重复调用
func (s *memoryCacheService) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

func (s *memoryCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	item := &cacheItem{
		value:     fmt.Sprintf("%v", value),
		hasExpiry: expiration > 0,
	}
	if expiration > 0 {
		item.expiration = s.now().Add(expiration)
	}
	s.data.Store(key, item)
	return nil
}

func (s *memoryCacheService) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.data.Load(key)
	if !ok {
		return "", nil
	}
	item, ok := value.(*cacheItem)
	if !ok {
		return "", nil
	}
	if item.isExpired(s.now()) {
		s.data.Delete(key)
		return "", nil
	}
	return item.value, nil
}

func (s *memoryCacheService) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.data.Delete(key)
	}
	return nil
}

// Scan 查找匹配的键，模式语法与 path.Match 相同（支持 * 和 ?）
func (s *memoryCacheService) Scan(ctx context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("非法的匹配模式 %q: %w", pattern, err)
	}
	var keys []string
	now := s.now()
	s.data.Range(func(key, value interface{}) bool {
		keyStr, ok := key.(string)
		if !ok {
			return true
		}
		item, ok := value.(*cacheItem)
		if !ok || item.isExpired(now) {
			return true
		}
		if matched, _ := path.Match(pattern, keyStr); matched {
			keys = append(keys, keyStr)
		}
		return true
	})
	return keys, nil
}
