package biz

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/pkg/errors"
	logctx "github.com/kart-io/catalog-chat/pkg/infra/logger"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// 默认步骤超时。
const (
	DefaultRetrievalTimeout  = 20 * time.Second
	DefaultGenerationTimeout = 60 * time.Second
)

// ContextRetriever 为问题检索上下文。
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) (*RetrievalResult, error)
}

// ChainConfig 问答链配置。
type ChainConfig struct {
	// RetrievalTimeout 检索步骤超时。
	RetrievalTimeout time.Duration
	// GenerationTimeout 生成步骤超时。
	GenerationTimeout time.Duration
}

// Answer 表示一次问答的结果。
type Answer struct {
	// Text 模型回答。
	Text string
	// Sources 用作上下文的文档块。
	Sources []*store.SearchResult
}

// AnswerChain 顺序执行检索、组装提示词和生成。
type AnswerChain struct {
	retriever ContextRetriever
	template  *PromptTemplate
	chat      llm.ChatProvider
	config    ChainConfig
	recorder  Recorder
}

// ChainOption 配置 AnswerChain。
type ChainOption func(*AnswerChain)

// WithRecorder 设置指标记录器。
func WithRecorder(r Recorder) ChainOption {
	return func(c *AnswerChain) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewAnswerChain 创建问答链。
func NewAnswerChain(retriever ContextRetriever, template *PromptTemplate, chat llm.ChatProvider, config ChainConfig, opts ...ChainOption) *AnswerChain {
	if config.RetrievalTimeout <= 0 {
		config.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if config.GenerationTimeout <= 0 {
		config.GenerationTimeout = DefaultGenerationTimeout
	}
	c := &AnswerChain{
		retriever: retriever,
		template:  template,
		chat:      chat,
		config:    config,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask 回答问题。任一步骤失败都直接返回错误，不返回部分结果。
// 检索结果为空时仍然调用模型。
func (c *AnswerChain) Ask(ctx context.Context, input string, history []Turn) (*Answer, error) {
	// 1. 检索
	result, err := c.retrieve(ctx, input)
	if err != nil {
		return nil, err
	}

	// 2. 组装提示词
	messages := c.template.Render(result, history, input)

	// 3. 生成
	resp, err := c.generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    resp.Content,
		Sources: result.Results,
	}, nil
}

func (c *AnswerChain) retrieve(ctx context.Context, input string) (*RetrievalResult, error) {
	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, c.config.RetrievalTimeout)
	defer cancel()

	result, err := c.retriever.Retrieve(rctx, input)
	if err != nil {
		if stderrors.Is(rctx.Err(), context.DeadlineExceeded) {
			err = errors.ErrRetrievalTimeout.WithCause(err)
		} else if !errors.IsRetrievalError(err) {
			err = errors.ErrRetrieval.WithCause(err)
		}
		c.recorder.RecordRetrieval(time.Since(start), 0, err)
		logctx.GetLogger(ctx).Errorw("retrieval failed", "error", err.Error())
		return nil, err
	}

	c.recorder.RecordRetrieval(time.Since(start), len(result.Results), nil)
	return result, nil
}

func (c *AnswerChain) generate(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error) {
	start := time.Now()
	gctx, cancel := context.WithTimeout(ctx, c.config.GenerationTimeout)
	defer cancel()

	resp, err := c.chat.Chat(gctx, messages)
	switch {
	case err != nil:
		if stderrors.Is(gctx.Err(), context.DeadlineExceeded) {
			err = errors.ErrGenerationTimeout.WithCause(err)
		} else {
			err = errors.ErrGeneration.WithCause(err)
		}
	case resp == nil || strings.TrimSpace(resp.Content) == "":
		err = errors.ErrEmptyGeneration
	}
	if err != nil {
		c.recorder.RecordGeneration(time.Since(start), nil, err)
		logctx.GetLogger(ctx).Errorw("generation failed", "provider", c.chat.Name(), "error", err.Error())
		return nil, err
	}

	c.recorder.RecordGeneration(time.Since(start), resp.TokenUsage, nil)
	if resp.TokenUsage != nil {
		logctx.GetLogger(ctx).Debugw("answer generated", "length", len(resp.Content), "tokens", resp.TokenUsage.TotalTokens)
	}
	return resp, nil
}
