package resilience

import (
	"context"

	"github.com/kart-io/catalog-chat/pkg/llm"
)

// guarded 每次尝试都经过熔断器，重试在熔断器之外。
type guarded struct {
	policy  Policy
	breaker *Breaker
}

func newGuarded(name string, p Policy) guarded {
	return guarded{policy: p, breaker: NewBreaker(name, p.Threshold, p.Cooldown)}
}

func call[T any](ctx context.Context, g guarded, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, g.policy, func() error {
		return g.breaker.Do(func() error {
			var err error
			out, err = fn(ctx)
			return err
		})
	})
	return out, err
}

// Embedder 带策略的 Embedding 供应商。
type Embedder struct {
	guarded
	inner llm.EmbeddingProvider
}

// WrapEmbedding 用给定策略包装 Embedding 供应商。
func WrapEmbedding(inner llm.EmbeddingProvider, p Policy) *Embedder {
	return &Embedder{guarded: newGuarded("embedding/"+inner.Name(), p), inner: inner}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return call(ctx, e.guarded, func(ctx context.Context) ([][]float32, error) {
		return e.inner.Embed(ctx, texts)
	})
}

func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, e.guarded, func(ctx context.Context) ([]float32, error) {
		return e.inner.EmbedSingle(ctx, text)
	})
}

func (e *Embedder) Name() string { return e.inner.Name() }

// Breaker 暴露熔断器，供健康检查读取。
func (e *Embedder) Breaker() *Breaker { return e.breaker }

// Chatter 带策略的 Chat 供应商。
type Chatter struct {
	guarded
	inner llm.ChatProvider
}

// WrapChat 用给定策略包装 Chat 供应商。
func WrapChat(inner llm.ChatProvider, p Policy) *Chatter {
	return &Chatter{guarded: newGuarded("chat/"+inner.Name(), p), inner: inner}
}

func (c *Chatter) Chat(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error) {
	return call(ctx, c.guarded, func(ctx context.Context) (*llm.GenerateResponse, error) {
		return c.inner.Chat(ctx, messages)
	})
}

func (c *Chatter) Name() string { return c.inner.Name() }

// Breaker 暴露熔断器，供健康检查读取。
func (c *Chatter) Breaker() *Breaker { return c.breaker }
