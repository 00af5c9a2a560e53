// Package openai 提供兼容 OpenAI API 的 LLM 供应商实现。
// NVIDIA NIM（向量）与 Groq（对话）都暴露 OpenAI 兼容接口，共用此实现。
//
// 基本用法：
//
//	import _ "github.com/kart-io/catalog-chat/pkg/llm/openai"
//
//	embedder, err := llm.NewEmbeddingProvider("openai", map[string]any{
//	    "base_url":    "https://integrate.api.nvidia.com/v1",
//	    "api_key":     os.Getenv("NVIDIA_API_KEY"),
//	    "embed_model": "nvidia/nv-embedqa-mistral-7b-v2",
//	    "input_type":  "query",
//	})
//
//	chat, err := llm.NewChatProvider("openai", map[string]any{
//	    "base_url":    "https://api.groq.com/openai/v1",
//	    "api_key":     os.Getenv("GROQ_API_KEY"),
//	    "chat_model":  "llama-3.3-70b-versatile",
//	    "temperature": 0.6,
//	    "max_tokens":  4096,
//	})
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/catalog-chat/pkg/llm"
	"github.com/kart-io/catalog-chat/pkg/utils/httpclient"
)

// ProviderName 是 OpenAI 兼容供应商的名称标识符
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 兼容供应商配置。
type Config struct {
	// BaseURL API 基础地址，可指向任意 OpenAI 兼容服务。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于对话的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout 单次 HTTP 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 5xx 或网络错误时的重试次数，0 表示不重试。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Temperature 采样温度，0 表示不下发，使用服务端默认值。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 最大生成 token 数，0 表示不下发。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// InputType 非对称向量模型的输入类型（query / passage），为空时不下发。
	InputType string `json:"input_type" mapstructure:"input_type"`

	// Truncate 输入超长时的截断策略（NONE / START / END），为空时不下发。
	Truncate string `json:"truncate" mapstructure:"truncate"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    60 * time.Second,
		MaxRetries: 0,
	}
}

// Provider OpenAI 兼容供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = llm.ConfigString(configMap, "base_url", cfg.BaseURL)
	cfg.APIKey = llm.ConfigString(configMap, "api_key", cfg.APIKey)
	cfg.EmbedModel = llm.ConfigString(configMap, "embed_model", cfg.EmbedModel)
	cfg.ChatModel = llm.ConfigString(configMap, "chat_model", cfg.ChatModel)
	cfg.Timeout = llm.ConfigDuration(configMap, "timeout", cfg.Timeout)
	cfg.MaxRetries = llm.ConfigInt(configMap, "max_retries", cfg.MaxRetries)
	cfg.Temperature = llm.ConfigFloat(configMap, "temperature", cfg.Temperature)
	cfg.MaxTokens = llm.ConfigInt(configMap, "max_tokens", cfg.MaxTokens)
	cfg.InputType = llm.ConfigString(configMap, "input_type", cfg.InputType)
	cfg.Truncate = llm.ConfigString(configMap, "truncate", cfg.Truncate)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
	InputType      string   `json:"input_type,omitempty"`
	Truncate       string   `json:"truncate,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{
		Model:          p.config.EmbedModel,
		Input:          texts,
		EncodingFormat: "float",
		InputType:      p.config.InputType,
		Truncate:       p.config.Truncate,
	}

	var embedResp embeddingResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/embeddings", p.headers(), reqBody, &embedResp); err != nil {
		return nil, err
	}

	// 按 index 回填，确保顺序与输入一致
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("第 %d 条文本未返回向量嵌入", i)
		}
	}

	return embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      llm.Message `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error) {
	reqBody := chatRequest{
		Model:       p.config.ChatModel,
		Messages:    messages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	var chatResp chatResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/chat/completions", p.headers(), reqBody, &chatResp); err != nil {
		return nil, err
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("未返回响应内容")
	}

	return &llm.GenerateResponse{
		Content: chatResp.Choices[0].Message.Content,
		Model:   chatResp.Model,
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
		"Accept":        "application/json",
	}
}
