package llm

import (
	"TodayInHistory/backend/go/internal/config"
	"TodayInHistory/backend/go/internal/models"
	pkghttp "TodayInHistory/backend/go/pkg/http"
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrModelLoading 表示远端模型仍在加载（Hugging Face 返回 503）。
	ErrModelLoading = errors.New("model is loading")
	// ErrEmptyResponse 表示服务返回了成功状态，但没有任何生成文本。
	ErrEmptyResponse = errors.New("no generated text returned")
)

// LLM 定义了所有文本生成客户端必须实现的通用接口。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// 返回的 io.Closer 用于在进程退出时释放客户端持有的资源。
func NewClient(ctx context.Context, cfg config.LLMConfig, breaker config.CircuitBreakerConfig) (LLM, io.Closer, error) {
	timeout := config.Duration(cfg.Timeout)

	switch cfg.Provider {
	case "huggingface":
		httpClient, err := pkghttp.NewClient(breaker, timeout)
		if err != nil {
			return nil, nil, err
		}
		hf, err := NewHuggingFace(httpClient, cfg.HuggingFace.Model, cfg.HuggingFace.APIKey, cfg.HuggingFace.BaseURL)
		return hf, nopCloser{}, err
	case "ollama":
		o, err := NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL, timeout)
		return o, nopCloser{}, err
	case "openai":
		o, err := NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		return o, nopCloser{}, err
	case "gemini":
		g, err := NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
