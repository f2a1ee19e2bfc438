package models

import "time"

// TimestampLayout 是接口中所有时间字段使用的格式（UTC，毫秒精度）。
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FactSource 是对外暴露的事实来源描述。生成结果与兜底结果使用同一个值。
const FactSource = "Live AI Generated"

// FactOrigin 标识一条事实的内部来源，只用于日志与事件，不出现在 HTTP 响应中。
type FactOrigin string

const (
	OriginGenerated FactOrigin = "generated" // 由文本生成服务实时生成
	OriginFallback  FactOrigin = "fallback"  // 来自人工整理的兜底列表
)

// Fact 是一次获取流程的结果。
type Fact struct {
	Text   string     `json:"text"`
	Origin FactOrigin `json:"origin"`
}

// CacheEntry 记录一次成功请求生成的事实，以请求 ID 为键。
type CacheEntry struct {
	ID        string    `json:"id"`
	DateKey   string    `json:"date_key"` // "M-D"
	Fact      string    `json:"fact"`
	CreatedAt time.Time `json:"created_at"`
}

// FactResponse 是事实接口的成功响应。
type FactResponse struct {
	Date        string `json:"date"`
	Fact        string `json:"fact"`
	Source      string `json:"source"`
	GeneratedAt string `json:"generated_at"`
}

// ErrorResponse 是所有接口的错误响应。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Retry   bool   `json:"retry,omitempty"`
}

// HealthResponse 是健康检查接口的响应。
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	CacheSize      int    `json:"cacheSize"`
	UsedFactsCount int    `json:"usedFactsCount"`
	// Dependencies 只在状态为 UNAVAILABLE 时填充。
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// ClearCacheResponse 是清空缓存接口的响应。
type ClearCacheResponse struct {
	Message string `json:"message"`
}

// HealthStats 是服务层返回的状态计数。
type HealthStats struct {
	CacheSize      int
	UsedFactsCount int
}

// FactEvent 是每次发放事实后发布到消息队列的事件。
type FactEvent struct {
	ID          string     `json:"id"`
	Date        string     `json:"date"`
	Month       int        `json:"month"`
	Day         int        `json:"day"`
	Fact        string     `json:"fact"`
	Origin      FactOrigin `json:"origin"`
	GeneratedAt time.Time  `json:"generated_at"`
}
