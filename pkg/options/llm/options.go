// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（openai, ollama）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥，推荐通过 ${NVIDIA_API_KEY} / ${GROQ_API_KEY} 在配置文件中引用。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 重试次数，查询链路默认为 0。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Temperature 采样温度（仅 Chat）。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 最大生成 token 数（仅 Chat）。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// InputType 向量输入类型 query / passage（仅 Embedding）。
	InputType string `json:"input-type" mapstructure:"input-type"`

	// Truncate 超长输入截断策略（仅 Embedding）。
	Truncate string `json:"truncate" mapstructure:"truncate"`
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置（NVIDIA NIM）。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:  "openai",
		BaseURL:   "https://integrate.api.nvidia.com/v1",
		Model:     "nvidia/nv-embedqa-mistral-7b-v2",
		Timeout:   30 * time.Second,
		InputType: "query",
		Truncate:  "NONE",
	}
}

// NewChatOptions 创建默认 Chat 供应商配置（Groq）。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:    "openai",
		BaseURL:     "https://api.groq.com/openai/v1",
		Model:       "llama-3.3-70b-versatile",
		Timeout:     60 * time.Second,
		Temperature: 0.6,
		MaxTokens:   4096,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.Model,
		"chat_model":  o.Model,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
		"temperature": o.Temperature,
		"max_tokens":  o.MaxTokens,
		"input_type":  o.InputType,
		"truncate":    o.Truncate,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "llm."
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider (openai, ollama).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on 5xx or network errors.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature (chat only).")
	fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum generated tokens (chat only).")
	fs.StringVar(&o.InputType, p+"input-type", o.InputType, "Embedding input type, query or passage (embedding only).")
	fs.StringVar(&o.Truncate, p+"truncate", o.Truncate, "Embedding truncation policy NONE|START|END (embedding only).")
}

// Complete 在未配置 API key 时从环境变量 envKey 读取。
func (o *ProviderOptions) Complete(envKey string) error {
	if o.APIKey == "" && envKey != "" {
		o.APIKey = os.Getenv(envKey)
	}
	return nil
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	// 托管服务需要 API key
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max-retries must not be negative"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2]"))
	}
	return errs
}
