package biz_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// keywordEmbedder 按关键词出现次数生成向量，便于构造确定的相似度。
type keywordEmbedder struct {
	vocab []string
	err   error
	mu    sync.Mutex
	calls int
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{vocab: []string{"saree", "shirt", "shoe", "watch"}}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(e.vocab))
	for i, w := range e.vocab {
		v[i] = float32(strings.Count(lower, w))
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *keywordEmbedder) Name() string { return "keyword" }

func (e *keywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// mockChat 记录收到的消息并按 reply 返回结果。
type mockChat struct {
	mu       sync.Mutex
	reply    func(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error)
	received [][]llm.Message
}

func (m *mockChat) Chat(ctx context.Context, messages []llm.Message) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	m.received = append(m.received, append([]llm.Message(nil), messages...))
	m.mu.Unlock()
	if m.reply == nil {
		return &llm.GenerateResponse{Content: "ok"}, nil
	}
	return m.reply(ctx, messages)
}

func (m *mockChat) Name() string { return "mock" }

func (m *mockChat) last() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.received) == 0 {
		return nil
	}
	return m.received[len(m.received)-1]
}

func fixedReply(text string) func(context.Context, []llm.Message) (*llm.GenerateResponse, error) {
	return func(context.Context, []llm.Message) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Content: text}, nil
	}
}

func failingReply(err error) func(context.Context, []llm.Message) (*llm.GenerateResponse, error) {
	return func(context.Context, []llm.Message) (*llm.GenerateResponse, error) {
		return nil, err
	}
}

// staticRetriever 返回固定的检索结果。
type staticRetriever struct {
	result *biz.RetrievalResult
	err    error
}

func (r *staticRetriever) Retrieve(_ context.Context, query string) (*biz.RetrievalResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.result == nil {
		return &biz.RetrievalResult{Query: query}, nil
	}
	return r.result, nil
}

// blockingRetriever 阻塞直到上下文结束。
type blockingRetriever struct{}

func (blockingRetriever) Retrieve(ctx context.Context, _ string) (*biz.RetrievalResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

const sareeCSV = `Brand,Product Name,Price,MRP,Discount
Sugathari,Women's Banarasi Saree Pure Kanjivaram Silk Saree,£5.22,£21.84,76% off
Sugathari,Women's Banarasi Saree Pure Kanjivaram Silk Saree (Cotton),£4.74,£21.84,78% off
Roadster,Men's Checked Casual Shirt,£8.50,£17.00,50% off
`

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func mustTemplate(t *testing.T) *biz.PromptTemplate {
	t.Helper()
	tpl, err := biz.NewPromptTemplate("", "")
	require.NoError(t, err)
	return tpl
}

func longRow(n int) string {
	return fmt.Sprintf("Brand,Description\nAcme,%s\n", strings.Repeat("é", n))
}
