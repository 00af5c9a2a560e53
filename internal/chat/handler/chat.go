// Package handler 提供问答服务的 HTTP 处理器。
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/catalog-chat/internal/pkg/httputils"
	"github.com/kart-io/catalog-chat/pkg/errors"
	logctx "github.com/kart-io/catalog-chat/pkg/infra/logger"
)

// ChatService 处理一轮对话。
type ChatService interface {
	Handle(ctx context.Context, sessionID, message string) (string, error)
}

// ChatHandler 处理聊天请求。
type ChatHandler struct {
	service        ChatService
	defaultSession string
}

// NewChatHandler 创建 ChatHandler，defaultSession 供旧版 /chat 接口使用。
func NewChatHandler(service ChatService, defaultSession string) *ChatHandler {
	return &ChatHandler{service: service, defaultSession: defaultSession}
}

// ChatRequest 聊天请求。
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// ChatResponse 聊天响应。
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// LegacyChatRequest 旧版聊天请求，会话固定为默认会话。
type LegacyChatRequest struct {
	Input string `json:"input"`
}

// LegacyChatResponse 旧版聊天响应。
type LegacyChatResponse struct {
	Response string `json:"response"`
}

// Chat 处理 POST /v1/chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteError(c, errors.ErrInvalidChatRequest.WithCause(err))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		httputils.WriteError(c, errors.ErrInvalidChatRequest.WithMessage("input is required"))
		return
	}

	// 未指定会话时分配新的会话 ID
	if req.SessionID == "" {
		req.SessionID = ulid.Make().String()
	}

	answer, err := h.service.Handle(c.Request.Context(), req.SessionID, req.Input)
	if err != nil {
		logctx.GetLogger(logctx.WithSessionID(c.Request.Context(), req.SessionID)).Errorw("chat request failed", "error", err.Error())
		httputils.WriteError(c, err)
		return
	}

	httputils.WriteResponse(c, nil, ChatResponse{SessionID: req.SessionID, Answer: answer})
}

// LegacyChat 处理 POST /chat，失败时以 500 返回 "[ERROR] <message>"。
func (h *ChatHandler) LegacyChat(c *gin.Context) {
	var req LegacyChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, LegacyChatResponse{Response: "[ERROR] " + err.Error()})
		return
	}

	answer, err := h.service.Handle(c.Request.Context(), h.defaultSession, req.Input)
	if err != nil {
		logctx.GetLogger(logctx.WithSessionID(c.Request.Context(), h.defaultSession)).Errorw("legacy chat request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, LegacyChatResponse{Response: "[ERROR] " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, LegacyChatResponse{Response: answer})
}
