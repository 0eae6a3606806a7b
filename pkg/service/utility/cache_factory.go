/*
 * @Description: 转换进度缓存，优先 Redis，不可用时退回进程内存
 * @Author: 安知鱼
 * @Date: 2025-10-17 14:20:36
 * @LastEditTime: 2025-10-17 15:02:11
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// progressPingTimeout 限制启动时探测 Redis 的等待时间
const progressPingTimeout = 3 * time.Second

// NewProgressCache 为转换进度选择存储后端。
// Redis 能连通时多个实例共享进度，否则进度只在本进程内可见。
func NewProgressCache(ctx context.Context, redisClient *redis.Client) CacheService {
	if redisClient == nil {
		log.Println("🔄 未配置 Redis，转换进度保存在进程内存中")
		return NewMemoryCacheService()
	}

	pingCtx, cancel := context.WithTimeout(ctx, progressPingTimeout)
	defer cancel()
	addr := redisClient.Options().Addr
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("⚠️  Redis %s 无法连接: %v，转换进度改存进程内存", addr, err)
		return NewMemoryCacheService()
	}

	log.Printf("✅ 转换进度保存在 Redis %s", addr)
	return NewCacheService(redisClient)
}

// Backend 是进度缓存实际使用的存储
type Backend string

const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// BackendOf 报告缓存落在哪个后端，未知实现按进程内存处理
func BackendOf(svc CacheService) Backend {
	if _, ok := svc.(*redisCacheService); ok {
		return BackendRedis
	}
	return BackendMemory
}
