package biz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/store"
	errs "github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

func TestAnswerChain_Ask(t *testing.T) {
	retriever := &staticRetriever{result: &biz.RetrievalResult{Results: []*store.SearchResult{
		{ID: "1", Content: "Brand: Sugathari\nPrice: £4.74", Score: 0.9},
	}}}
	chat := &mockChat{reply: fixedReply("Sugathari saree at £4.74")}
	chain := biz.NewAnswerChain(retriever, mustTemplate(t), chat, biz.ChainConfig{})

	ans, err := chain.Ask(context.Background(), "cheap saree?", []biz.Turn{biz.UserTurn("hi"), biz.AssistantTurn("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Sugathari saree at £4.74", ans.Text)
	require.Len(t, ans.Sources, 1)

	msgs := chat.last()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0].Content, "Price: £4.74")
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, "cheap saree?", msgs[3].Content)
}

func TestAnswerChain_EmptyContextStillGenerates(t *testing.T) {
	chat := &mockChat{reply: fixedReply("Sorry, that information is not available.")}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), chat, biz.ChainConfig{})

	ans, err := chain.Ask(context.Background(), "do you sell laptops?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.Empty(t, ans.Sources)

	msgs := chat.last()
	require.Len(t, msgs, 2)
	assert.NotContains(t, msgs[0].Content, biz.ContextSlot)
	assert.Equal(t, "do you sell laptops?", msgs[1].Content)
}

func TestAnswerChain_Errors(t *testing.T) {
	tests := []struct {
		name      string
		retriever biz.ContextRetriever
		reply     func(context.Context, []llm.Message) (*llm.GenerateResponse, error)
		want      error
		noChat    bool
	}{
		{
			name:      "检索失败",
			retriever: &staticRetriever{err: errors.New("dial tcp: refused")},
			want:      errs.ErrRetrieval,
			noChat:    true,
		},
		{
			name:      "检索失败保留错误码",
			retriever: &staticRetriever{err: errs.ErrRetrieval.WithCause(errors.New("x"))},
			want:      errs.ErrRetrieval,
			noChat:    true,
		},
		{
			name:      "生成失败",
			retriever: &staticRetriever{},
			reply:     failingReply(errors.New("502 bad gateway")),
			want:      errs.ErrGeneration,
		},
		{
			name:      "生成内容为空",
			retriever: &staticRetriever{},
			reply:     fixedReply("   "),
			want:      errs.ErrEmptyGeneration,
		},
		{
			name:      "生成结果为 nil",
			retriever: &staticRetriever{},
			reply: func(context.Context, []llm.Message) (*llm.GenerateResponse, error) {
				return nil, nil
			},
			want: errs.ErrEmptyGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{reply: tt.reply}
			chain := biz.NewAnswerChain(tt.retriever, mustTemplate(t), chat, biz.ChainConfig{})

			ans, err := chain.Ask(context.Background(), "q", nil)
			require.Error(t, err)
			assert.Nil(t, ans)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.noChat {
				assert.Nil(t, chat.last())
			}
		})
	}
}

func TestAnswerChain_Timeouts(t *testing.T) {
	t.Run("检索超时", func(t *testing.T) {
		chat := &mockChat{}
		chain := biz.NewAnswerChain(blockingRetriever{}, mustTemplate(t), chat, biz.ChainConfig{
			RetrievalTimeout: 20 * time.Millisecond,
		})

		_, err := chain.Ask(context.Background(), "q", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrRetrievalTimeout), "got %v", err)
		assert.True(t, errs.IsRetrievalError(err))
		assert.Nil(t, chat.last())
	})

	t.Run("生成超时", func(t *testing.T) {
		chat := &mockChat{reply: func(ctx context.Context, _ []llm.Message) (*llm.GenerateResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), chat, biz.ChainConfig{
			GenerationTimeout: 20 * time.Millisecond,
		})

		_, err := chain.Ask(context.Background(), "q", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrGenerationTimeout), "got %v", err)
		assert.True(t, errs.IsGenerationError(err))
	})
}

type countingRecorder struct {
	retrievals, generations, queries int
	lastErr                          error
}

func (r *countingRecorder) RecordRetrieval(time.Duration, int, error) { r.retrievals++ }
func (r *countingRecorder) RecordGeneration(_ time.Duration, _ *llm.TokenUsage, err error) {
	r.generations++
	r.lastErr = err
}
func (r *countingRecorder) RecordQuery(time.Duration, error) { r.queries++ }

func TestAnswerChain_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	chat := &mockChat{reply: failingReply(errors.New("boom"))}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), chat, biz.ChainConfig{}, biz.WithRecorder(rec))

	_, err := chain.Ask(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, 1, rec.retrievals)
	assert.Equal(t, 1, rec.generations)
	assert.Error(t, rec.lastErr)
}
