/*
 * @Description: 频率限制中间件
 * @Author: 安知鱼
 * @Date: 2025-11-08 00:00:00
 * @LastEditTime: 2026-10-14 21:40:12
 * @LastEditors: 安知鱼
 */
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-comment/pkg/response"
	"github.com/anzhiyu-c/anheyu-comment/pkg/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiter 用于存储每个IP地址的限流器
type ipRateLimiter struct {
	limiters map[string]*limiterInfo
	mu       sync.Mutex
	// 每个IP每分钟允许的请求数
	requestsPerMinute int
	// 突发请求数（允许短时间内的突发流量）
	burst int
	// 超过该时长未访问的限流器会被清理
	idleTTL time.Duration
}

// limiterInfo 存储限流器及其最后访问时间
type limiterInfo struct {
	limiter      *rate.Limiter
	lastAccessed time.Time
}

// newIPRateLimiter 创建一个新的IP限流器
func newIPRateLimiter(requestsPerMinute, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters:          make(map[string]*limiterInfo),
		requestsPerMinute: requestsPerMinute,
		burst:             burst,
		idleTTL:           10 * time.Minute,
	}
}

// getLimiter 获取指定IP的限流器，顺带清理长时间未访问的条目
func (i *ipRateLimiter) getLimiter(ip string, now time.Time) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	info, exists := i.limiters[ip]
	if !exists {
		if len(i.limiters) >= 1024 {
			i.sweep(now)
		}
		limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(i.requestsPerMinute)), i.burst)
		info = &limiterInfo{limiter: limiter}
		i.limiters[ip] = info
	}
	info.lastAccessed = now
	return info.limiter
}

// sweep 删除超过 idleTTL 未访问的限流器，调用方需持有锁
func (i *ipRateLimiter) sweep(now time.Time) {
	for ip, info := range i.limiters {
		if now.Sub(info.lastAccessed) > i.idleTTL {
			delete(i.limiters, ip)
		}
	}
}

// CommentRateLimit 限制每个IP发表评论的频率。
// requestsPerMinute<=0 时不做限制。
func CommentRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newIPRateLimiter(requestsPerMinute, burst)

	return func(c *gin.Context) {
		ip := util.GetRealClientIP(c)
		if !limiter.getLimiter(ip, time.Now()).Allow() {
			response.Fail(c, http.StatusTooManyRequests, "提交过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
