package cache

import (
	"context"
	"fmt"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// RedisCache 跨實例的 profile 快取鏡像
// 部署多實例時讓快取命中可以共享；單機可停用
type RedisCache struct {
	client *redis.Client
	config *config.Config
}

// NewRedisCache 創建 Redis 快取；未啟用時回傳 nil
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		config: cfg,
	}, nil
}

// GetProfile 讀取快取的風味 profile
func (r *RedisCache) GetProfile(ctx context.Context, name string) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("cache is disabled")
	}

	data, err := r.client.Get(ctx, profileKey(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("cache miss")
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var tokens []string
	if err := common.ParseJSONBytes(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	return tokens, nil
}

// SetProfile 寫入風味 profile 快取
func (r *RedisCache) SetProfile(ctx context.Context, name string, tokens []string) error {
	if r == nil {
		return nil
	}

	data, err := common.ToJSON(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := r.client.Set(ctx, profileKey(name), data, r.config.Cache.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// Close 關閉 Redis 連線
func (r *RedisCache) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// profileKey 生成快取鍵
func profileKey(name string) string {
	return fmt.Sprintf("flavor:profile:%s", name)
}
