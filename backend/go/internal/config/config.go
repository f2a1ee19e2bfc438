package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址 (例如: ":8080")
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的等待时间 (例如: "5s")
}

// HuggingFaceConfig 包含了 Hugging Face Inference API 的配置。
type HuggingFaceConfig struct {
	APIKey  string `yaml:"apiKey"`  // Bearer 凭证，为空时读取 HUGGINGFACE_API_KEY
	Model   string `yaml:"model"`   // 模型名称 (例如: "gpt2")
	BaseURL string `yaml:"baseURL"` // Inference API 的基准 URL
}

// OllamaConfig 包含了本地 Ollama 服务的配置。
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// OpenAIConfig 包含了 OpenAI 兼容接口的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"` // 为空时使用官方地址
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// LLMConfig 包含了文本生成服务的配置以及固定的采样参数。
type LLMConfig struct {
	Provider     string            `yaml:"provider"`     // 提供商: "huggingface", "ollama", "openai", "gemini"
	Timeout      string            `yaml:"timeout"`      // 单次外呼的超时时间
	MaxNewTokens int               `yaml:"maxNewTokens"` // 最大生成长度
	Temperature  float64           `yaml:"temperature"`
	TopP         float64           `yaml:"topP"`
	HuggingFace  HuggingFaceConfig `yaml:"huggingface"`
	Ollama       OllamaConfig      `yaml:"ollama"`
	OpenAI       OpenAIConfig      `yaml:"openai"`
	Gemini       GeminiConfig      `yaml:"gemini"`
}

// FactsConfig 定义了事实获取流程（重试、去重、缓存、每日重置）的参数。
type FactsConfig struct {
	MaxAttempts       int    `yaml:"maxAttempts"`       // 总尝试次数
	RetryDelay        string `yaml:"retryDelay"`        // 失败后重试前的等待时间
	MinLength         int    `yaml:"minLength"`         // 有效输出的最小长度（不含）
	FingerprintLength int    `yaml:"fingerprintLength"` // 去重指纹的截断长度
	CacheTTL          string `yaml:"cacheTTL"`          // 缓存条目的存活时间，0 表示保留到每日重置
	CacheCapacity     int    `yaml:"cacheCapacity"`     // 内存缓存的最大条目数
	Store             string `yaml:"store"`             // 状态存储: "memory" 或 "redis"
	KeyPrefix         string `yaml:"keyPrefix"`         // Redis 键前缀
	Timezone          string `yaml:"timezone"`          // 计算"今天"所用的时区，为空表示本地时区
}

// AuthConfig 用于配置管理接口的认证。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // 为空时不启用认证
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`   // Kafka Broker 地址列表，为空时不发布事件
	FactTopic string   `yaml:"factTopic"` // 已发放事实的事件主题
}

// DatabaseConfigs 包含所有外部存储的配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了入站限流器的配置。
type RateLimiterConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Algorithm     string            `yaml:"algorithm"` // 支持: "tokenBucket", "fixedWindow", "slidingWindow"
	FixedWindow   WindowConfig      `yaml:"fixedWindow"`
	SlidingWindow WindowConfig      `yaml:"slidingWindow"`
	TokenBucket   TokenBucketConfig `yaml:"tokenBucket"`
}

// WindowConfig 定义了按时间窗口计数的限流算法的配置。
type WindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了外呼熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Facts      FactsConfig      `yaml:"facts"`
	Auth       AuthConfig       `yaml:"auth"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
// 解析后会填充默认值，并使用环境变量覆盖密钥类配置。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容并返回填充好默认值的配置。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回一份只包含默认值的配置，便于测试和无配置文件启动。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "fact_service"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "5s"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "huggingface"
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "30s"
	}
	if c.LLM.MaxNewTokens == 0 {
		c.LLM.MaxNewTokens = 100
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.8
	}
	if c.LLM.TopP == 0 {
		c.LLM.TopP = 0.9
	}
	if c.LLM.HuggingFace.Model == "" {
		c.LLM.HuggingFace.Model = "gpt2"
	}
	if c.LLM.HuggingFace.BaseURL == "" {
		c.LLM.HuggingFace.BaseURL = "https://api-inference.huggingface.co/models/"
	}
	if c.LLM.Ollama.BaseURL == "" {
		c.LLM.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.LLM.Ollama.Model == "" {
		c.LLM.Ollama.Model = "llama3"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.Gemini.Model == "" {
		c.LLM.Gemini.Model = "gemini-1.5-flash"
	}

	if c.Facts.MaxAttempts == 0 {
		c.Facts.MaxAttempts = 2
	}
	if c.Facts.RetryDelay == "" {
		c.Facts.RetryDelay = "1s"
	}
	if c.Facts.MinLength == 0 {
		c.Facts.MinLength = 20
	}
	if c.Facts.FingerprintLength == 0 {
		c.Facts.FingerprintLength = 40
	}
	if c.Facts.CacheTTL == "" {
		c.Facts.CacheTTL = "0s"
	}
	if c.Facts.CacheCapacity == 0 {
		c.Facts.CacheCapacity = 100000
	}
	if c.Facts.Store == "" {
		c.Facts.Store = "memory"
	}
	if c.Facts.KeyPrefix == "" {
		c.Facts.KeyPrefix = "facts"
	}

	if c.Databases.Kafka.FactTopic == "" {
		c.Databases.Kafka.FactTopic = "served_facts"
	}

	if c.Middleware.RateLimiter.Algorithm == "" {
		c.Middleware.RateLimiter.Algorithm = "tokenBucket"
	}
	if c.Middleware.CircuitBreaker.Timeout == "" {
		c.Middleware.CircuitBreaker.Timeout = "30s"
	}
}

// applyEnv 使用环境变量覆盖密钥，避免把凭证写进配置文件。
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("HUGGINGFACE_API_KEY"); v != "" {
		c.LLM.HuggingFace.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.Gemini.APIKey = v
	}
	if v := os.Getenv("FACTS_JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
}

// Validate 检查配置中的时长字段与枚举值是否合法。
func (c *AppConfig) Validate() error {
	durations := map[string]string{
		"server.shutdownTimeout":           c.Server.ShutdownTimeout,
		"llm.timeout":                      c.LLM.Timeout,
		"facts.retryDelay":                 c.Facts.RetryDelay,
		"facts.cacheTTL":                   c.Facts.CacheTTL,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("配置项 %s 的时长无效: %w", name, err)
		}
	}
	if c.Facts.MaxAttempts < 1 {
		return fmt.Errorf("facts.maxAttempts 必须大于 0")
	}
	switch c.Facts.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("不支持的状态存储: %s", c.Facts.Store)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location 返回计算日期所用的时区。
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Facts.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Facts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 '%s': %w", c.Facts.Timezone, err)
	}
	return loc, nil
}

// Duration 解析一个已经通过 Validate 校验的时长字段。
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
