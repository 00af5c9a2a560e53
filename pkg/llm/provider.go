// Package llm 提供统一的 LLM 供应商抽象层。
// Embedding 与 Chat 可以使用不同供应商，例如 NVIDIA 向量模型配合 Groq 对话模型。
package llm

import (
	"context"
	"time"
)

// EmbeddingProvider 把文本转成向量。Embed 的返回顺序与输入一致。
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// ChatProvider 对一组消息生成回复。
// 温度与最大 token 数在构造时固定，调用方只传消息。
type ChatProvider interface {
	Chat(ctx context.Context, messages []Message) (*GenerateResponse, error)
	Name() string
}

// Message 对话中的一条消息，字段与 OpenAI chat 接口一致。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// GenerateResponse 一次生成调用的结果，TokenUsage 在供应商不返回用量时为 nil。
type GenerateResponse struct {
	Content    string      `json:"content"`
	Model      string      `json:"model,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// TokenUsage token 用量。
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider 同一个后端同时提供向量与对话。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ConfigString 读取字符串配置，缺失或为空时返回 def。
func ConfigString(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// ConfigInt 读取整数配置，负值视为缺失。
func ConfigInt(m map[string]any, key string, def int) int {
	if v, ok := m[key].(int); ok && v >= 0 {
		return v
	}
	return def
}

// ConfigFloat 读取浮点配置，接受 float64 与 float32。
func ConfigFloat(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return def
}

// ConfigDuration 读取时长配置，非正值视为缺失。
func ConfigDuration(m map[string]any, key string, def time.Duration) time.Duration {
	if v, ok := m[key].(time.Duration); ok && v > 0 {
		return v
	}
	return def
}
