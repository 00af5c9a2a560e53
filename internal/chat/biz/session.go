package biz

import (
	"context"
	"sync"

	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// Turn 表示一轮对话消息。
type Turn struct {
	Role llm.Role `json:"role"`
	Text string   `json:"text"`
}

// UserTurn 创建用户消息。
func UserTurn(text string) Turn { return Turn{Role: llm.RoleUser, Text: text} }

// AssistantTurn 创建助手消息。
func AssistantTurn(text string) Turn { return Turn{Role: llm.RoleAssistant, Text: text} }

// Session 会话快照。
type Session struct {
	ID    string
	Turns []Turn
}

// SessionStore 会话存储接口。
//
// GetOrCreate 是唯一的创建入口；Append 只能追加到已创建的会话，
// 否则返回 ErrSessionNotFound。一次 Append 的全部消息要么都写入，要么都不写入。
// 会话 ID 不做任何校验。
type SessionStore interface {
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	Append(ctx context.Context, id string, turns ...Turn) error
	// Len 返回会话数量。
	Len(ctx context.Context) (int, error)
}

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore 进程内会话存储，生命周期与进程一致。
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewMemorySessionStore 创建内存会话存储。
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]Turn)}
}

// GetOrCreate 返回会话副本，不存在时创建空会话。
func (s *MemorySessionStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	turns, ok := s.sessions[id]
	if ok {
		snapshot := &Session{ID: id, Turns: append([]Turn(nil), turns...)}
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok = s.sessions[id]
	if !ok {
		turns = []Turn{}
		s.sessions[id] = turns
	}
	return &Session{ID: id, Turns: append([]Turn(nil), turns...)}, nil
}

// Append 在同一临界区内追加消息。
func (s *MemorySessionStore) Append(_ context.Context, id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[id]
	if !ok {
		return errors.ErrSessionNotFound.WithMessagef("session %q not created", id)
	}
	s.sessions[id] = append(existing, turns...)
	return nil
}

// Len 返回会话数量。
func (s *MemorySessionStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
