package chatsvc

import (
	"fmt"
	"os"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/handler"
	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/catalog-chat/pkg/llm/ollama"
	_ "github.com/kart-io/catalog-chat/pkg/llm/openai"
	"github.com/kart-io/catalog-chat/pkg/llm/resilience"
	llmopts "github.com/kart-io/catalog-chat/pkg/options/llm"
)

// policy 查询链路只调用一次，索引链路按 MaxRetries 重试。
func policy(maxRetries int) resilience.Policy {
	if maxRetries <= 0 {
		return resilience.QueryPolicy()
	}
	return resilience.IndexPolicy(maxRetries)
}

// NewEmbeddingProvider 按配置创建带熔断的 Embedding 供应商。
func NewEmbeddingProvider(opts *llmopts.ProviderOptions) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, errors.ErrConfiguration.WithCause(fmt.Errorf("embedding provider: %w", err))
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"input_type", opts.InputType,
	)
	return resilience.WrapEmbedding(provider, policy(opts.MaxRetries)), nil
}

// NewChatProvider 按配置创建带熔断的 Chat 供应商。
func NewChatProvider(opts *llmopts.ProviderOptions) (llm.ChatProvider, error) {
	provider, err := llm.NewChatProvider(opts.Provider, opts.ToConfigMap())
	if err != nil {
		return nil, errors.ErrConfiguration.WithCause(fmt.Errorf("chat provider: %w", err))
	}
	logger.Infow("Chat provider initialized",
		"provider", opts.Provider,
		"model", opts.Model,
		"temperature", opts.Temperature,
		"max_tokens", opts.MaxTokens,
	)
	return resilience.WrapChat(provider, policy(opts.MaxRetries)), nil
}

// NewPromptTemplate 读取自定义系统指令文件，未配置时使用默认指令。
func NewPromptTemplate(file, currency string) (*biz.PromptTemplate, error) {
	instruction := biz.DefaultSystemPrompt
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.ErrConfiguration.WithCause(fmt.Errorf("read system prompt: %w", err))
		}
		instruction = string(data)
	}
	return biz.NewPromptTemplate(instruction, currency)
}

// breakers 收集供应商熔断器，用于 /v1/stats。
func breakers(providers ...any) []handler.BreakerReporter {
	var out []handler.BreakerReporter
	for _, p := range providers {
		if b, ok := p.(interface{ Breaker() *resilience.Breaker }); ok {
			out = append(out, b.Breaker())
		}
	}
	return out
}
