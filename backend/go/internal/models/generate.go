package models

// GenerateContentRequest 定义了一次文本生成请求。
type GenerateContentRequest struct {
	Prompt       string  `json:"prompt"`
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	TopP         float64 `json:"top_p,omitempty"`
}

// GenerateContentResponse 定义了文本生成的结果。
type GenerateContentResponse struct {
	Text         string `json:"text"`
	ModelVersion string `json:"modelVersion,omitempty"` // 实际响应的模型名称
}
