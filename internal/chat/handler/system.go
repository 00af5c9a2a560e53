package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/catalog-chat/internal/pkg/httputils"
	"github.com/kart-io/catalog-chat/pkg/errors"
)

// RowCounter 返回集合中的文档块数量。
type RowCounter interface {
	GetStats(ctx context.Context, collection string) (int64, error)
}

// SessionCounter 返回活跃会话数量。
type SessionCounter interface {
	Len(ctx context.Context) (int, error)
}

// MetricsExporter 导出指标。
type MetricsExporter interface {
	Export(namespace, subsystem string) string
	Stats() map[string]any
}

// BreakerReporter 报告上游熔断器状态。
type BreakerReporter interface {
	Snapshot() map[string]any
}

// SystemHandler 提供健康检查、指标与统计接口。
type SystemHandler struct {
	rows       RowCounter
	sessions   SessionCounter
	metrics    MetricsExporter
	breakers   []BreakerReporter
	collection string
	namespace  string
	timeout    time.Duration
}

// NewSystemHandler 创建 SystemHandler。
func NewSystemHandler(rows RowCounter, sessions SessionCounter, metrics MetricsExporter, collection, namespace string) *SystemHandler {
	return &SystemHandler{
		rows:       rows,
		sessions:   sessions,
		metrics:    metrics,
		collection: collection,
		namespace:  namespace,
		timeout:    5 * time.Second,
	}
}

// WithBreakers 在统计接口中附带上游熔断器状态。
func (h *SystemHandler) WithBreakers(breakers ...BreakerReporter) *SystemHandler {
	h.breakers = append(h.breakers, breakers...)
	return h
}

// StatsResponse 统计响应。
type StatsResponse struct {
	Collection     string           `json:"collection"`
	RowCount       int64            `json:"row_count"`
	ActiveSessions int              `json:"active_sessions"`
	Metrics        map[string]any   `json:"metrics,omitempty"`
	Upstreams      []map[string]any `json:"upstreams,omitempty"`
}

// Healthz 处理 GET /healthz。
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics 处理 GET /metrics，输出 Prometheus 文本格式。
func (h *SystemHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(h.metrics.Export(h.namespace, "chat")))
}

// Stats 处理 GET /v1/stats。
func (h *SystemHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	rows, err := h.rows.GetStats(ctx, h.collection)
	if err != nil {
		httputils.WriteError(c, errors.ErrRetrieval.WithCause(err))
		return
	}
	sessions, err := h.sessions.Len(ctx)
	if err != nil {
		httputils.WriteError(c, errors.ErrSession.WithCause(err))
		return
	}

	resp := StatsResponse{
		Collection:     h.collection,
		RowCount:       rows,
		ActiveSessions: sessions,
		Metrics:        h.metrics.Stats(),
	}
	for _, b := range h.breakers {
		resp.Upstreams = append(resp.Upstreams, b.Snapshot())
	}
	httputils.WriteResponse(c, nil, resp)
}
