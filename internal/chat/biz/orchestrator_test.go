package biz_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	errs "github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

func TestOrchestrator_HistoryOrdering(t *testing.T) {
	ctx := context.Background()
	sessions := biz.NewMemorySessionStore()
	chat := &mockChat{reply: func(_ context.Context, msgs []llm.Message) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Content: "re:" + msgs[len(msgs)-1].Content}, nil
	}}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), chat, biz.ChainConfig{})
	o := biz.NewOrchestrator(sessions, chain, nil)

	for _, msg := range []string{"A", "B", "C"} {
		_, err := o.Handle(ctx, "s1", msg)
		require.NoError(t, err)
	}

	// 第三次调用时的历史应为 A、B 两轮
	msgs := chat.last()
	require.Len(t, msgs, 6)
	got := make([]string, 0, 5)
	for _, m := range msgs[1:] {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"A", "re:A", "B", "re:B", "C"}, got)

	sess, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	users := make([]string, 0, 3)
	for _, turn := range sess.Turns {
		if turn.Role == llm.RoleUser {
			users = append(users, turn.Text)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, users)
	assert.Len(t, sess.Turns, 6)
}

func TestOrchestrator_NoMutationOnFailure(t *testing.T) {
	ctx := context.Background()
	sessions := biz.NewMemorySessionStore()
	chat := &mockChat{reply: fixedReply("first answer")}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), chat, biz.ChainConfig{})
	o := biz.NewOrchestrator(sessions, chain, nil)

	_, err := o.Handle(ctx, "s1", "hello")
	require.NoError(t, err)

	chat.reply = failingReply(errors.New("503 service unavailable"))
	_, err = o.Handle(ctx, "s1", "again")
	require.Error(t, err)
	assert.True(t, errs.IsGenerationError(err))

	sess, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, biz.UserTurn("hello"), sess.Turns[0])
	assert.Equal(t, biz.AssistantTurn("first answer"), sess.Turns[1])
}

// flakySessions 在 Append 时返回错误，模拟存储网络中断。
type flakySessions struct {
	*biz.MemorySessionStore
	appends [][]biz.Turn
	err     error
}

func (f *flakySessions) Append(ctx context.Context, id string, turns ...biz.Turn) error {
	f.appends = append(f.appends, turns)
	if f.err != nil {
		return f.err
	}
	return f.MemorySessionStore.Append(ctx, id, turns...)
}

func TestOrchestrator_SaveFailureLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	sessions := &flakySessions{MemorySessionStore: biz.NewMemorySessionStore()}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), &mockChat{reply: fixedReply("ok")}, biz.ChainConfig{})
	o := biz.NewOrchestrator(sessions, chain, nil)

	_, err := o.Handle(ctx, "s1", "hello")
	require.NoError(t, err)
	require.Len(t, sessions.appends, 1)
	assert.Equal(t, []biz.Turn{biz.UserTurn("hello"), biz.AssistantTurn("ok")}, sessions.appends[0])

	sessions.err = errors.New("connection reset")
	_, err = o.Handle(ctx, "s1", "again")
	require.Error(t, err)

	sess, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []biz.Turn{biz.UserTurn("hello"), biz.AssistantTurn("ok")}, sess.Turns)
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder()
	path := writeCSV(t, "sarees.csv", sareeCSV)

	loaded := biz.NewDocumentLoader(0).Load([]string{path})
	require.Empty(t, loaded.Skipped)
	contents := make([]string, len(loaded.Chunks))
	for i, c := range loaded.Chunks {
		contents[i] = c.Content
	}
	vs := seedStore(t, embedder, contents...)

	retriever := biz.NewRetriever(vs, embedder, &biz.RetrieverConfig{Collection: testCollection, TopK: 5, MinScore: 0.5})
	chat := &mockChat{reply: func(_ context.Context, msgs []llm.Message) (*llm.GenerateResponse, error) {
		// 从上下文中挑出最便宜的 saree
		if strings.Contains(msgs[0].Content, "Price: £4.74") {
			return &llm.GenerateResponse{Content: "Try the Sugathari cotton saree at £4.74 (MRP: £21.84)."}, nil
		}
		return &llm.GenerateResponse{Content: "Sorry, I could not find that."}, nil
	}}
	chain := biz.NewAnswerChain(retriever, mustTemplate(t), chat, biz.ChainConfig{})
	sessions := biz.NewMemorySessionStore()
	o := biz.NewOrchestrator(sessions, chain, nil)

	answer, err := o.Handle(ctx, "s2", "show me a saree under £5")
	require.NoError(t, err)
	assert.Contains(t, answer, "£4.74")
	assert.Contains(t, answer, "£21.84")

	// 衬衫不应进入上下文
	assert.NotContains(t, chat.last()[0].Content, "Roadster")

	sess, err := sessions.GetOrCreate(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, biz.UserTurn("show me a saree under £5"), sess.Turns[0])
	assert.Equal(t, biz.AssistantTurn(answer), sess.Turns[1])
}

// overlapChain 检测同一会话的并发调用。
type overlapChain struct {
	mu      sync.Mutex
	active  map[string]int
	overlap atomic.Bool
	calls   atomic.Int32
}

func (c *overlapChain) Ask(ctx context.Context, input string, history []biz.Turn) (*biz.Answer, error) {
	id := strings.SplitN(input, "/", 2)[0]
	c.mu.Lock()
	c.active[id]++
	if c.active[id] > 1 {
		c.overlap.Store(true)
	}
	c.mu.Unlock()

	time.Sleep(2 * time.Millisecond)
	c.calls.Add(1)

	c.mu.Lock()
	c.active[id]--
	c.mu.Unlock()
	return &biz.Answer{Text: fmt.Sprintf("%s/%d", input, len(history))}, nil
}

func TestOrchestrator_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	sessions := biz.NewMemorySessionStore()
	chain := &overlapChain{active: make(map[string]int)}
	o := biz.NewOrchestrator(sessions, chain, nil)

	const perSession = 10
	ids := []string{"s1", "s2", "s3"}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < perSession; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				_, err := o.Handle(ctx, id, fmt.Sprintf("%s/%d", id, i))
				assert.NoError(t, err)
			}(id, i)
		}
	}
	wg.Wait()

	assert.False(t, chain.overlap.Load(), "same session must be serialized")
	assert.Equal(t, int32(len(ids)*perSession), chain.calls.Load())

	for _, id := range ids {
		sess, err := sessions.GetOrCreate(ctx, id)
		require.NoError(t, err)
		require.Len(t, sess.Turns, 2*perSession)
		// 用户消息与助手消息严格交替
		for i, turn := range sess.Turns {
			if i%2 == 0 {
				assert.Equal(t, llm.RoleUser, turn.Role)
				assert.True(t, strings.HasPrefix(turn.Text, id+"/"))
			} else {
				assert.Equal(t, llm.RoleAssistant, turn.Role)
				assert.Equal(t, fmt.Sprintf("%s/%d", sess.Turns[i-1].Text, i-1), turn.Text)
			}
		}
	}
}

func TestOrchestrator_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	chain := biz.NewAnswerChain(&staticRetriever{}, mustTemplate(t), &mockChat{}, biz.ChainConfig{})
	o := biz.NewOrchestrator(biz.NewMemorySessionStore(), chain, rec)

	_, err := o.Handle(context.Background(), "s", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.queries)
	assert.NotNil(t, o.Sessions())
}
