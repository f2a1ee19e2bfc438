// Package store 保存事实服务的每日状态：已发放事实的指纹集合、事实缓存以及每日重置标记。
package store

import (
	"TodayInHistory/backend/go/internal/models"
	"context"
)

// Store 是每日状态的唯一所有者。所有方法都可以被并发调用。
type Store interface {
	// ResetIfNewDay 在 day 与上次重置标记不同时清空指纹集合和缓存，并更新标记。
	// 首次调用只记录标记。发生清空时返回 true。
	ResetIfNewDay(ctx context.Context, day string) (bool, error)
	// MarkUsed 原子地记录一个指纹，并报告它在此之前是否已经存在。
	MarkUsed(ctx context.Context, fingerprint string) (alreadyUsed bool, err error)
	// PutCache 记录一次成功请求生成的事实。
	PutCache(ctx context.Context, entry models.CacheEntry) error
	// Stats 返回缓存条目数与已用指纹数。
	Stats(ctx context.Context) (models.HealthStats, error)
	// Clear 清空指纹集合和缓存，不影响重置标记。
	Clear(ctx context.Context) error
	// Close 释放底层资源。
	Close() error
}
