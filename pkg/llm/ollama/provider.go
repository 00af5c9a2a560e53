// Package ollama 提供本地 Ollama 供应商实现，用于离线开发与调试。
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/catalog-chat/pkg/llm"
	"github.com/kart-io/catalog-chat/pkg/utils/httpclient"
)

const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel  string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel   string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `json:"max_retries" mapstructure:"max_retries"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.2",
		Timeout:    120 * time.Second,
	}
}

// Provider Ollama 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Ollama 供应商。Ollama 不需要 api_key。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = llm.ConfigString(configMap, "base_url", cfg.BaseURL)
	cfg.EmbedModel = llm.ConfigString(configMap, "embed_model", cfg.EmbedModel)
	cfg.ChatModel = llm.ConfigString(configMap, "chat_model", cfg.ChatModel)
	cfg.Timeout = llm.ConfigDuration(configMap, "timeout", cfg.Timeout)
	cfg.MaxRetries = llm.ConfigInt(configMap, "max_retries", cfg.MaxRetries)
	cfg.Temperature = llm.ConfigFloat(configMap, "temperature", cfg.Temperature)
	cfg.MaxTokens = llm.ConfigInt(configMap, "max_tokens", cfg.MaxTokens)

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
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

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/embed", nil, embedRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	}, &resp); err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("向量数量不匹配: 期望 %d, 实际 %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         llm.Message `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error) {
	req := chatRequest{
		Model:    p.config.ChatModel,
		Messages: messages,
	}
	if p.config.Temperature > 0 || p.config.MaxTokens > 0 {
		req.Options = &chatOptions{Temperature: p.config.Temperature, NumPredict: p.config.MaxTokens}
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/chat", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}

	return &llm.GenerateResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		TokenUsage: &llm.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
