package store

import (
	"TodayInHistory/backend/go/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// resetScript 比较并更新重置标记；标记变化且原标记存在时删除指纹集合与缓存。
var resetScript = redis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old == ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
if old then
	redis.call('DEL', KEYS[2], KEYS[3])
	return 1
end
return 0
`)

// RedisStore 把每日状态放在 Redis 中，多个服务实例可以共享同一份去重集合。
//
// 键布局（prefix 默认为 "facts"）：
//
//	<prefix>:used       SET   已发放事实的指纹
//	<prefix>:cache      HASH  请求ID -> CacheEntry JSON，整体按 cacheTTL 过期
//	<prefix>:reset_day  STRING 上次重置的日期
type RedisStore struct {
	client   *redis.Client
	usedKey  string
	cacheKey string
	dayKey   string
	cacheTTL time.Duration
}

// NewRedisStore 基于已连接的客户端创建存储。Close 会关闭该客户端。
func NewRedisStore(client *redis.Client, prefix string, cacheTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:   client,
		usedKey:  prefix + ":used",
		cacheKey: prefix + ":cache",
		dayKey:   prefix + ":reset_day",
		cacheTTL: cacheTTL,
	}
}

func (s *RedisStore) ResetIfNewDay(ctx context.Context, day string) (bool, error) {
	n, err := resetScript.Run(ctx, s.client, []string{s.dayKey, s.usedKey, s.cacheKey}, day).Int()
	if err != nil {
		return false, fmt.Errorf("每日重置失败: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) MarkUsed(ctx context.Context, fingerprint string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.usedKey, fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("记录事实指纹失败: %w", err)
	}
	return added == 0, nil
}

func (s *RedisStore) PutCache(ctx context.Context, entry models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化缓存条目失败: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.cacheKey, entry.ID, data)
	if s.cacheTTL > 0 {
		pipe.Expire(ctx, s.cacheKey, s.cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (models.HealthStats, error) {
	pipe := s.client.Pipeline()
	cacheLen := pipe.HLen(ctx, s.cacheKey)
	usedLen := pipe.SCard(ctx, s.usedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.HealthStats{}, fmt.Errorf("读取状态失败: %w", err)
	}
	return models.HealthStats{
		CacheSize:      int(cacheLen.Val()),
		UsedFactsCount: int(usedLen.Val()),
	}, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.usedKey, s.cacheKey).Err(); err != nil {
		return fmt.Errorf("清空缓存失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
