package llm

import (
	"TodayInHistory/backend/go/internal/models"
	pkghttp "TodayInHistory/backend/go/pkg/http"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HuggingFace 是一个用于 Hugging Face Inference API 的 LLM 客户端。
type HuggingFace struct {
	client  *pkghttp.Client // 带熔断的 HTTP 客户端
	model   string          // 要使用的模型名称
	apiKey  string          // Hugging Face API 密钥
	baseURL string          // Inference API 的基准 URL
}

// hfRequest 是 Inference API 的请求体。
type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFace 创建一个新的 HuggingFace 客户端。
// baseURL 为空时默认为 "https://api-inference.huggingface.co/models/"。
func NewHuggingFace(client *pkghttp.Client, model, apiKey, baseURL string) (*HuggingFace, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for huggingface provider")
	}
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models/"
	}
	return &HuggingFace{
		client:  client,
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

// GenerateContent 调用 Inference API 生成文本。
// 503 被映射为 ErrModelLoading，其余非 2xx 状态返回包含状态码的错误。
func (h *HuggingFace) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	jsonReq, err := json.Marshal(hfRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens:   req.MaxNewTokens,
			Temperature:    req.Temperature,
			TopP:           req.TopP,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.model, bytes.NewReader(jsonReq))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		var statusErr *pkghttp.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusServiceUnavailable {
			return nil, fmt.Errorf("%w: %s", ErrModelLoading, statusErr.Body)
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	text, err := decodeGeneratedText(body)
	if err != nil {
		return nil, err
	}
	return &models.GenerateContentResponse{Text: text, ModelVersion: h.model}, nil
}

// decodeGeneratedText 兼容两种响应格式：[{generated_text}] 与 {generated_text}。
func decodeGeneratedText(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", ErrEmptyResponse
	}

	if trimmed[0] == '[' {
		var list []hfGeneration
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(list) == 0 || list[0].GeneratedText == "" {
			return "", ErrEmptyResponse
		}
		return list[0].GeneratedText, nil
	}

	var single hfGeneration
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if single.GeneratedText == "" {
		return "", ErrEmptyResponse
	}
	return single.GeneratedText, nil
}
