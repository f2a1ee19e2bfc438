package service

import (
	"TodayInHistory/backend/go/internal/fact_service/store"
	"TodayInHistory/backend/go/internal/models"
	"TodayInHistory/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dayLayout 是每日重置标记的格式。
const dayLayout = "2006-01-02"

// Publisher 接收每一条已发放的事实。
type Publisher interface {
	Publish(ctx context.Context, event models.FactEvent) error
}

// Result 是一次成功请求的结果。
type Result struct {
	ID          string
	Text        string
	Origin      models.FactOrigin
	GeneratedAt time.Time
}

// FactService 是事实接口背后的请求级服务：每日重置、获取、记录缓存、发布事件。
type FactService struct {
	provider  *Provider
	store     store.Store
	publisher Publisher
	now       func() time.Time
	loc       *time.Location
	logger    *logger.Logger
}

// Option 用于定制 FactService。
type Option func(*FactService)

// WithClock 设置服务使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(s *FactService) { s.now = now }
}

// WithLocation 设置计算"今天"和每日重置所用的时区。
func WithLocation(loc *time.Location) Option {
	return func(s *FactService) { s.loc = loc }
}

// WithPublisher 设置事件发布器。为空时不发布。
func WithPublisher(p Publisher) Option {
	return func(s *FactService) { s.publisher = p }
}

// WithLogger 设置日志记录器。
func WithLogger(l *logger.Logger) Option {
	return func(s *FactService) { s.logger = l }
}

// NewFactService 创建 FactService。
func NewFactService(provider *Provider, st store.Store, opts ...Option) *FactService {
	s := &FactService{
		provider: provider,
		store:    st,
		now:      time.Now,
		loc:      time.Local,
		logger:   logger.New("fact_service", "", ""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHistoricalFact 返回给定日期的一条事实。
// 失败时返回的错误都包装了 ErrServiceUnavailable。
func (s *FactService) GetHistoricalFact(ctx context.Context, month, day int) (*Result, error) {
	if reset, err := s.store.ResetIfNewDay(ctx, s.Today().Format(dayLayout)); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "store"}).Error("每日重置检查失败")
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	} else if reset {
		s.logger.Info("Daily cache reset - fresh facts available")
	}

	id := fmt.Sprintf("%d-%d-%s", month, day, uuid.NewString())
	log := s.logger.WithTrace(id)
	log.Info(fmt.Sprintf("Generating fresh AI fact for %d/%d", month, day))

	fact, err := s.provider.Fetch(ctx, month, day)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching fact from AI")
		if !errors.Is(err, ErrServiceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return nil, err
	}

	generatedAt := s.now()
	if err := s.store.PutCache(ctx, models.CacheEntry{
		ID:        id,
		DateKey:   fmt.Sprintf("%d-%d", month, day),
		Fact:      fact.Text,
		CreatedAt: generatedAt,
	}); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store"}).Error("写入缓存失败")
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if s.publisher != nil {
		event := models.FactEvent{
			ID:          id,
			Date:        fmt.Sprintf("%d/%d", month, day),
			Month:       month,
			Day:         day,
			Fact:        fact.Text,
			Origin:      fact.Origin,
			GeneratedAt: generatedAt.UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "publish"}).Warn("发布事实事件失败")
		}
	}

	log.WithPayload(map[string]interface{}{"origin": fact.Origin}).Info(fmt.Sprintf("Generated unique fact for %d/%d", month, day))
	return &Result{ID: id, Text: fact.Text, Origin: fact.Origin, GeneratedAt: generatedAt}, nil
}

// Today 返回配置时区下的当前时间。
func (s *FactService) Today() time.Time {
	return s.now().In(s.loc)
}

// Now 返回服务时钟的当前时间。
func (s *FactService) Now() time.Time {
	return s.now()
}

// ClearCache 清空去重集合和缓存，不影响每日重置标记。
func (s *FactService) ClearCache(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Cache cleared manually")
	return nil
}

// Health 返回当前缓存条目数与已发放事实数。
func (s *FactService) Health(ctx context.Context) (models.HealthStats, error) {
	return s.store.Stats(ctx)
}
