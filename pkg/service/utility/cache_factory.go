/*
 * @Description: 根据 Redis 是否可用选择缓存实现
 * @Author: 安知鱼
 * @Date: 2025-10-05 00:00:00
 * @LastEditTime: 2026-10-15 01:04:10
 * @LastEditors: 安知鱼
 */
package utility

import (
	"log"

	"github.com/redis/go-redis/v9"
)

// NewCacheServiceWithFallback 在 redisClient 为 nil 时降级到内存缓存。
// 连通性检查已在 database.NewRedisClient 中完成，这里不再 ping。
func NewCacheServiceWithFallback(redisClient *redis.Client) CacheService {
	if redisClient == nil {
		log.Println("🔄 使用内存缓存服务（Memory Cache）")
		return NewMemoryCacheService()
	}
	log.Println("✅ 使用 Redis 缓存服务")
	return NewRedisCacheService(redisClient)
}
