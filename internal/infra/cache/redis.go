/*
 * @Description: Redis 客户端，用于缓存转换进度
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2025-10-16 18:41:12
 * @LastEditors: 安知鱼
 */
package cache

import (
	"context"
	"log"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// NewRedisClient 返回 Redis 客户端；未配置或连接失败时返回 nil，由上层降级为内存缓存
func NewRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	addr := cfg.GetString(config.KeyRedisAddr)
	if addr == "" {
		log.Println("⚠️  Redis 地址未配置，将使用内存缓存")
		return nil
	}
	db := cfg.GetInt(config.KeyRedisDB)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.GetString(config.KeyRedisPassword),
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("⚠️  连接 Redis (%s, DB %d) 失败: %v，将使用内存缓存", addr, db, err)
		_ = rdb.Close()
		return nil
	}

	log.Printf("✅ 成功连接到 Redis (%s, DB %d)", addr, db)
	return rdb
}
