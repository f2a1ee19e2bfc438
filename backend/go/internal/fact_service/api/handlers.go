package api

import (
	"TodayInHistory/backend/go/internal/fact_service/service"
	"TodayInHistory/backend/go/internal/models"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidDate        = "Invalid date format. Use /api/date/MM/DD"
	errServiceUnavailable = "AI service temporarily unavailable"
	msgCacheCleared       = "Cache cleared successfully"
)

// FactService 是处理函数依赖的服务接口，由 *service.FactService 实现。
type FactService interface {
	GetHistoricalFact(ctx context.Context, month, day int) (*service.Result, error)
	Today() time.Time
	Now() time.Time
	ClearCache(ctx context.Context) error
	Health(ctx context.Context) (models.HealthStats, error)
}

// DependencyCheck 检查一个外部依赖（Redis、Kafka 等）是否可达。
type DependencyCheck func(ctx context.Context) error

type dependency struct {
	name  string
	check DependencyCheck
}

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service      FactService
	dependencies []dependency
	checkTimeout time.Duration
}

// HandlerOption 用于定制 Handler。
type HandlerOption func(*Handler)

// WithDependency 注册一个依赖检查。健康检查失败时会逐个执行并在响应中报告结果。
func WithDependency(name string, check DependencyCheck) HandlerOption {
	return func(h *Handler) {
		h.dependencies = append(h.dependencies, dependency{name: name, check: check})
	}
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s FactService, opts ...HandlerOption) *Handler {
	h := &Handler{service: s, checkTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Today 返回今天的事实。
func (h *Handler) Today(c *gin.Context) {
	today := h.service.Today()
	h.respondFact(c, int(today.Month()), today.Day(), today.Format("2006-01-02"))
}

// ByDate 返回指定月日的事实。month 与 day 必须是十进制整数。
func (h *Handler) ByDate(c *gin.Context) {
	month, errM := strconv.Atoi(c.Param("month"))
	day, errD := strconv.Atoi(c.Param("day"))
	if errM != nil || errD != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: errInvalidDate})
		return
	}
	h.respondFact(c, month, day, fmt.Sprintf("%d/%d", month, day))
}

func (h *Handler) respondFact(c *gin.Context, month, day int, date string) {
	res, err := h.service.GetHistoricalFact(c.Request.Context(), month, day)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   errServiceUnavailable,
			Message: service.ErrServiceUnavailable.Error(),
			Retry:   true,
		})
		return
	}

	c.JSON(http.StatusOK, models.FactResponse{
		Date:        date,
		Fact:        res.Text,
		Source:      models.FactSource,
		GeneratedAt: res.GeneratedAt.UTC().Format(models.TimestampLayout),
	})
}

// ClearCache 清空去重集合与缓存。
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to clear cache", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.ClearCacheResponse{Message: msgCacheCleared})
}

// Health 返回服务状态与计数。
func (h *Handler) Health(c *gin.Context) {
	stats, err := h.service.Health(c.Request.Context())
	timestamp := h.service.Now().UTC().Format(models.TimestampLayout)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, models.HealthResponse{
			Status:       "UNAVAILABLE",
			Timestamp:    timestamp,
			Dependencies: h.checkDependencies(c.Request.Context()),
		})
		return
	}
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:         "OK",
		Timestamp:      timestamp,
		CacheSize:      stats.CacheSize,
		UsedFactsCount: stats.UsedFactsCount,
	})
}

// checkDependencies 执行所有已注册的依赖检查，返回 名称 -> "OK" 或错误信息。
// 没有注册任何依赖时返回 nil。
func (h *Handler) checkDependencies(ctx context.Context) map[string]string {
	if len(h.dependencies) == 0 {
		return nil
	}
	status := make(map[string]string, len(h.dependencies))
	for _, d := range h.dependencies {
		checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
		if err := d.check(checkCtx); err != nil {
			status[d.name] = err.Error()
		} else {
			status[d.name] = "OK"
		}
		cancel()
	}
	return status
}
