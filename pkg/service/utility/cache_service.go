/*
 * @Description: 缓存服务接口与 Redis 实现
 * @Author: 安知鱼
 * @Date: 2025-06-20 15:17:47
 * @LastEditTime: 2026-10-15 01:02:31
 * @LastEditors: 安知鱼
 */
package utility

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService 是评论子系统使用的字符串缓存。
// Get 在 key 不存在或已过期时返回空字符串和 nil 错误。
type CacheService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Backend 返回实现名称，仅用于日志
	Backend() string
	Close() error
}

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService 包装一个已连通的 Redis 客户端，客户端的关闭由调用方负责
func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func (s *redisCacheService) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *redisCacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *redisCacheService) Backend() string { return BackendRedis }

func (s *redisCacheService) Close() error { return nil }
