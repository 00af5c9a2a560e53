// Package metrics 提供问答服务的业务指标收集。
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// ChatMetrics 问答服务业务指标。
type ChatMetrics struct {
	// 查询指标
	queriesTotal  uint64 // 总查询次数
	queriesErrors uint64 // 查询错误次数

	// 检索指标
	retrievalTotal   uint64 // 总检索次数
	retrievalErrors  uint64 // 检索错误次数
	retrievalResults uint64 // 检索返回的文档块总数
	retrievalEmpty   uint64 // 无结果的检索次数

	// LLM 调用指标
	llmCallsTotal       uint64 // LLM 总调用次数
	llmCallsErrors      uint64 // LLM 调用错误次数
	llmTokensPrompt     uint64 // Prompt tokens 总数
	llmTokensCompletion uint64 // Completion tokens 总数

	// 索引指标
	chunksIndexed uint64 // 已索引文档块数
	indexErrors   uint64 // 索引错误次数

	durationMu        sync.Mutex
	queryDuration     float64 // 查询总耗时（秒）
	retrievalDuration float64 // 检索总耗时（秒）
	llmCallsDuration  float64 // LLM 调用总耗时（秒）

	codesMu    sync.Mutex
	errorCodes map[int]uint64 // 按错误码统计的查询错误

	startTime time.Time
}

var (
	globalChatMetrics *ChatMetrics
	chatMetricsOnce   sync.Once
)

// NewChatMetrics 创建独立的指标实例。
func NewChatMetrics() *ChatMetrics {
	return &ChatMetrics{
		errorCodes: make(map[int]uint64),
		startTime:  time.Now(),
	}
}

// GetChatMetrics 获取全局指标实例。
func GetChatMetrics() *ChatMetrics {
	chatMetricsOnce.Do(func() {
		globalChatMetrics = NewChatMetrics()
	})
	return globalChatMetrics
}

// RecordQuery 记录一次完整问答。
func (m *ChatMetrics) RecordQuery(duration time.Duration, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	m.durationMu.Lock()
	m.queryDuration += duration.Seconds()
	m.durationMu.Unlock()

	if err == nil {
		return
	}
	atomic.AddUint64(&m.queriesErrors, 1)
	code := errors.FromError(err).Code
	m.codesMu.Lock()
	m.errorCodes[code]++
	m.codesMu.Unlock()
}

// RecordRetrieval 记录检索操作。
func (m *ChatMetrics) RecordRetrieval(duration time.Duration, results int, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()

	atomic.AddUint64(&m.retrievalResults, uint64(results))
	if results == 0 {
		atomic.AddUint64(&m.retrievalEmpty, 1)
	}
}

// RecordGeneration 记录 LLM 调用。
func (m *ChatMetrics) RecordGeneration(duration time.Duration, usage *llm.TokenUsage, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if usage == nil {
		return
	}
	if usage.PromptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(usage.CompletionTokens))
	}
}

// RecordIndexing 记录索引操作。
func (m *ChatMetrics) RecordIndexing(chunks int64, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
	}
	if chunks > 0 {
		atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
	}
}

func writeMetric(sb *strings.Builder, prefix, name, typ, help string, value any) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s %s\n", prefix, name, typ)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(sb, "%s_%s %.6f\n\n", prefix, name, v)
	default:
		fmt.Fprintf(sb, "%s_%s %v\n\n", prefix, name, v)
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *ChatMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	m.durationMu.Lock()
	queryDuration := m.queryDuration
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	// 查询指标
	writeMetric(&sb, prefix, "queries_total", "counter", "Total number of chat queries.", atomic.LoadUint64(&m.queriesTotal))
	writeMetric(&sb, prefix, "queries_errors_total", "counter", "Number of failed chat queries.", atomic.LoadUint64(&m.queriesErrors))
	writeMetric(&sb, prefix, "queries_duration_seconds_total", "counter", "Total chat query duration.", queryDuration)

	m.codesMu.Lock()
	codes := make([]int, 0, len(m.errorCodes))
	for code := range m.errorCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	if len(codes) > 0 {
		fmt.Fprintf(&sb, "# HELP %s_query_errors_by_code_total Failed chat queries by error code.\n", prefix)
		fmt.Fprintf(&sb, "# TYPE %s_query_errors_by_code_total counter\n", prefix)
		for _, code := range codes {
			fmt.Fprintf(&sb, "%s_query_errors_by_code_total{code=\"%d\"} %d\n", prefix, code, m.errorCodes[code])
		}
		sb.WriteString("\n")
	}
	m.codesMu.Unlock()

	// 检索指标
	writeMetric(&sb, prefix, "retrieval_total", "counter", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	writeMetric(&sb, prefix, "retrieval_errors_total", "counter", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	writeMetric(&sb, prefix, "retrieval_empty_total", "counter", "Retrievals with no chunk above the score threshold.", atomic.LoadUint64(&m.retrievalEmpty))
	writeMetric(&sb, prefix, "retrieval_results_total", "counter", "Total chunks returned by retrievals.", atomic.LoadUint64(&m.retrievalResults))
	writeMetric(&sb, prefix, "retrieval_duration_seconds_total", "counter", "Total retrieval duration.", retrievalDuration)

	// LLM 调用指标
	writeMetric(&sb, prefix, "llm_calls_total", "counter", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	writeMetric(&sb, prefix, "llm_calls_errors_total", "counter", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	writeMetric(&sb, prefix, "llm_calls_duration_seconds_total", "counter", "Total LLM call duration.", llmDuration)
	writeMetric(&sb, prefix, "llm_tokens_prompt_total", "counter", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	writeMetric(&sb, prefix, "llm_tokens_completion_total", "counter", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))

	// 索引指标
	writeMetric(&sb, prefix, "chunks_indexed_total", "counter", "Total chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))
	writeMetric(&sb, prefix, "index_errors_total", "counter", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))

	// 运行时间
	fmt.Fprintf(&sb, "# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix)
	fmt.Fprintf(&sb, "# TYPE %s_uptime_seconds gauge\n", prefix)
	fmt.Fprintf(&sb, "%s_uptime_seconds %.2f\n", prefix, time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回当前统计信息（用于 /v1/stats）。
func (m *ChatMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrieval := 0.0
	if retrievalTotal > 0 {
		avgRetrieval = retrievalDuration / float64(retrievalTotal)
	}
	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLM := 0.0
	if llmTotal > 0 {
		avgLLM = llmDuration / float64(llmTotal)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":  atomic.LoadUint64(&m.queriesTotal),
			"errors": atomic.LoadUint64(&m.queriesErrors),
		},
		"retrieval": map[string]any{
			"total":             retrievalTotal,
			"empty":             atomic.LoadUint64(&m.retrievalEmpty),
			"avg_duration_secs": avgRetrieval,
			"errors":            atomic.LoadUint64(&m.retrievalErrors),
		},
		"llm": map[string]any{
			"calls_total":       llmTotal,
			"avg_duration_secs": avgLLM,
			"errors":            atomic.LoadUint64(&m.llmCallsErrors),
			"tokens_prompt":     atomic.LoadUint64(&m.llmTokensPrompt),
			"tokens_completion": atomic.LoadUint64(&m.llmTokensCompletion),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}
