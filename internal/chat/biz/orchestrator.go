package biz

import (
	"context"
	"time"

	logctx "github.com/kart-io/catalog-chat/pkg/infra/logger"
)

// Answerer 根据历史对话回答问题。
type Answerer interface {
	Ask(ctx context.Context, input string, history []Turn) (*Answer, error)
}

// Orchestrator 串联会话历史与问答链。
type Orchestrator struct {
	sessions SessionStore
	chain    Answerer
	locks    *keyLock
	recorder Recorder
}

// NewOrchestrator 创建编排器。recorder 可以为 nil。
func NewOrchestrator(sessions SessionStore, chain Answerer, recorder Recorder) *Orchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Orchestrator{
		sessions: sessions,
		chain:    chain,
		locks:    newKeyLock(),
		recorder: recorder,
	}
}

// Sessions 返回会话存储。
func (o *Orchestrator) Sessions() SessionStore {
	return o.sessions
}

// Handle 处理一条消息并返回回答。
//
// 同一会话的调用串行执行，不同会话并行。问答失败时不写入任何消息；
// 成功时用户消息与助手回答在一次 Append 中写入，写入失败时会话保持原样。
func (o *Orchestrator) Handle(ctx context.Context, sessionID, message string) (string, error) {
	start := time.Now()
	answer, err := o.handle(ctx, sessionID, message)
	o.recorder.RecordQuery(time.Since(start), err)
	return answer, err
}

func (o *Orchestrator) handle(ctx context.Context, sessionID, message string) (string, error) {
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	ctx = logctx.WithSessionID(ctx, sessionID)

	session, err := o.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return "", err
	}

	answer, err := o.chain.Ask(ctx, message, session.Turns)
	if err != nil {
		logctx.GetLogger(ctx).Warnw("chat request failed", "error", err.Error())
		return "", err
	}

	if err := o.sessions.Append(ctx, sessionID, UserTurn(message), AssistantTurn(answer.Text)); err != nil {
		logctx.GetLogger(ctx).Errorw("failed to save exchange", "error", err.Error())
		return "", err
	}

	logctx.GetLogger(ctx).Infow("chat request handled",
		"history", len(session.Turns),
		"sources", len(answer.Sources),
	)
	return answer.Text, nil
}
