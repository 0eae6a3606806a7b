/*
 * @Description: 频率限制中间件
 * @Author: 安知鱼
 * @Date: 2025-11-08 00:00:00
 * @LastEditTime: 2025-11-08 15:59:28
 * @LastEditors: 安知鱼
 */
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/pkg/response"
	"github.com/anzhiyu-c/anheyu-docs/pkg/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// staleLimiterAge 超过这个时间未访问的限流器会被清理
const staleLimiterAge = 10 * time.Minute

// ipRateLimiter 为每个客户端地址维护一个令牌桶
type ipRateLimiter struct {
	limiters map[string]*limiterInfo
	mu       sync.Mutex
	// 每个IP每分钟允许的请求数
	requestsPerMinute int
	// 突发请求数
	burst           int
	cleanupInterval time.Duration
	now             func() time.Time
}

type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &ipRateLimiter{
		limiters:          make(map[string]*limiterInfo),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		cleanupInterval:   5 * time.Minute,
		now:               time.Now,
	}
}

func (i *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	info, exists := i.limiters[ip]
	if !exists {
		// rate.Every(time.Minute / n) 表示每分钟补充 n 个令牌
		info = &limiterInfo{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(i.requestsPerMinute)), i.burst),
		}
		i.limiters[ip] = info
	}
	info.lastAccessed = i.now()
	return info.limiter
}

// sweep 删除长时间未访问的限流器，返回删除的数量
func (i *ipRateLimiter) sweep() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, info := range i.limiters {
		if i.now().Sub(info.lastAccessed) > staleLimiterAge {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

func (i *ipRateLimiter) cleanupStaleEntries() {
	ticker := time.NewTicker(i.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.sweep()
	}
}

// CustomRateLimit 创建一个按客户端地址限流的中间件
// requestsPerMinute: 每分钟允许的请求数
// burst: 突发请求数
func CustomRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	limiter := newIPRateLimiter(requestsPerMinute, burst)
	go limiter.cleanupStaleEntries()

	return func(c *gin.Context) {
		ip := util.GetRealClientIP(c)
		if !limiter.getLimiter(ip).Allow() {
			response.Fail(c, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// UploadRateLimit 用于上传、远程抓取和转换接口。
// 每个IP每分钟最多 20 次，突发允许 10 次。
func UploadRateLimit() gin.HandlerFunc {
	return CustomRateLimit(20, 10)
}
