package service

import (
	"TodayInHistory/backend/go/internal/config"
	"TodayInHistory/backend/go/internal/fact_service/store"
	"TodayInHistory/backend/go/internal/llm"
	"TodayInHistory/backend/go/internal/models"
	"TodayInHistory/backend/go/pkg/circuitbreaker"
	"TodayInHistory/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrServiceUnavailable 表示本次请求无法给出事实（存储故障或请求在等待中被取消）。
// 它的文本就是返回给客户端的提示语。
var ErrServiceUnavailable = errors.New("AI service temporarily unavailable. Please refresh to try again.")

// errNoValidFact 表示生成结果为空或过短，按可重试错误处理。
var errNoValidFact = errors.New("no valid fact generated")

var leadingNoise = regexp.MustCompile(`^[:\-\s]+`)

// ProviderConfig 是事实获取流程的参数。
type ProviderConfig struct {
	MaxAttempts       int
	RetryDelay        time.Duration
	MinLength         int
	FingerprintLength int
	MaxNewTokens      int
	Temperature       float64
	TopP              float64
}

// ProviderConfigFrom 从应用配置中提取获取流程的参数。
func ProviderConfigFrom(cfg *config.AppConfig) ProviderConfig {
	return ProviderConfig{
		MaxAttempts:       cfg.Facts.MaxAttempts,
		RetryDelay:        config.Duration(cfg.Facts.RetryDelay),
		MinLength:         cfg.Facts.MinLength,
		FingerprintLength: cfg.Facts.FingerprintLength,
		MaxNewTokens:      cfg.LLM.MaxNewTokens,
		Temperature:       cfg.LLM.Temperature,
		TopP:              cfg.LLM.TopP,
	}
}

// Provider 调用文本生成服务获取事实，负责重试、去重和兜底。
type Provider struct {
	llm    llm.LLM
	store  store.Store
	cfg    ProviderConfig
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *logger.Logger
}

// ProviderOption 用于定制 Provider。
type ProviderOption func(*Provider)

// WithProviderClock 设置兜底选择所用的时钟。
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

// WithProviderLogger 设置日志记录器。
func WithProviderLogger(l *logger.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// NewProvider 创建一个 Provider。MaxAttempts 小于 1 时按 1 处理。
func NewProvider(client llm.LLM, st store.Store, cfg ProviderConfig, opts ...ProviderOption) *Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	p := &Provider{
		llm:    client,
		store:  st,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger.New("fact_provider", "", ""),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch 为给定日期获取一条事实。
//
// 每次尝试调用一次生成服务：出错或结果无效时等待 RetryDelay 后重试；
// 结果与当天已发放的事实重复时立即重试，最后一次尝试的重复结果直接接受。
// 尝试用尽后返回兜底事实。只有存储故障或 ctx 被取消才会返回错误。
func (p *Provider) Fetch(ctx context.Context, month, day int) (models.Fact, error) {
	prompt := BuildPrompt(month, day)
	log := p.logger.WithPayload(map[string]interface{}{"month": month, "day": day})

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		last := attempt == p.cfg.MaxAttempts

		text, err := p.generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return models.Fact{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
			}
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: classify(err)}).
				Warn(fmt.Sprintf("生成失败 (第 %d/%d 次尝试)", attempt, p.cfg.MaxAttempts))
			if last {
				break
			}
			if err := p.sleep(ctx, p.cfg.RetryDelay); err != nil {
				return models.Fact{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
			}
			continue
		}

		duplicate, err := p.store.MarkUsed(ctx, Fingerprint(text, p.cfg.FingerprintLength))
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "store"}).Error("记录事实指纹失败")
			return models.Fact{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		if duplicate && !last {
			log.Info("Duplicate fact detected, retrying")
			continue
		}
		log.Info("Successfully generated AI fact")
		return models.Fact{Text: text, Origin: models.OriginGenerated}, nil
	}

	log.Info("Using fallback historical facts")
	return models.Fact{
		Text:   SelectFallback(month, day, p.now().Minute()),
		Origin: models.OriginFallback,
	}, nil
}

// generate 执行一次外呼并返回清洗后的文本。
func (p *Provider) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.llm.GenerateContent(ctx, &models.GenerateContentRequest{
		Prompt:       prompt,
		MaxNewTokens: p.cfg.MaxNewTokens,
		Temperature:  p.cfg.Temperature,
		TopP:         p.cfg.TopP,
	})
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(resp.Text)
	if utf8.RuneCountInString(raw) <= p.cfg.MinLength {
		return "", errNoValidFact
	}
	text := CleanFact(raw, prompt)
	if text == "" {
		return "", errNoValidFact
	}
	return text, nil
}

// BuildPrompt 返回发送给生成服务的提示词。
func BuildPrompt(month, day int) string {
	return fmt.Sprintf("On %d/%d, an important event in Indian history occurred. Tell me about a significant Indian historical event, scientific achievement, sports victory, or famous personality birth on this date.", month, day)
}

// CleanFact 去掉回显的提示词和开头的冒号、连字符与空白。
func CleanFact(text, prompt string) string {
	text = strings.TrimSpace(strings.Replace(text, prompt, "", 1))
	return strings.TrimSpace(leadingNoise.ReplaceAllString(text, ""))
}

// Fingerprint 返回用于去重的指纹：小写后截取前 n 个字符。
func Fingerprint(text string, n int) string {
	lower := strings.ToLower(text)
	if n <= 0 {
		return lower
	}
	runes := []rune(lower)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func classify(err error) string {
	switch {
	case errors.Is(err, llm.ErrModelLoading):
		return "model_loading"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, errNoValidFact), errors.Is(err, llm.ErrEmptyResponse):
		return "invalid_output"
	default:
		return "upstream"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
