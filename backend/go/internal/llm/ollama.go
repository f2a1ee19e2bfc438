package llm

import (
	"TodayInHistory/backend/go/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于本地 Ollama 服务的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例
	model  string       // 要使用的模型名称
}

// NewOllama 创建一个新的 Ollama 客户端。
// baseURL 为空时默认为 "http://localhost:11434"。
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	client := olla.NewClient(parsedURL, &http.Client{Timeout: timeout})
	return &Ollama{client: client, model: model}, nil
}

// GenerateContent 以非流式方式调用 Ollama 生成文本，采样参数通过 Options 传递。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	stream := false
	var sb strings.Builder

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": req.MaxNewTokens,
			"temperature": req.Temperature,
			"top_p":       req.TopP,
		},
	}, func(resp olla.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	if sb.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &models.GenerateContentResponse{Text: sb.String(), ModelVersion: o.model}, nil
}
