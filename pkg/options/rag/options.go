// Package rag provides retrieval and answering options for the chat service.
package rag

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/catalog-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options RAG 检索与问答配置。
type Options struct {
	// Collection 向量集合名称。
	Collection string `json:"collection" mapstructure:"collection"`
	// EmbeddingDim 向量维度，需与 Embedding 模型一致。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
	// TopK 返回结果上限，0 表示不限制。
	TopK int `json:"top-k" mapstructure:"top-k"`
	// MinScore 最低相似度阈值（余弦）。
	MinScore float32 `json:"min-score" mapstructure:"min-score"`
	// CandidateLimit TopK 为 0 时向存储请求的候选数量。
	CandidateLimit int `json:"candidate-limit" mapstructure:"candidate-limit"`
	// MaxChunkChars 单个文档块最大字符数。
	MaxChunkChars int `json:"max-chunk-chars" mapstructure:"max-chunk-chars"`
	// CurrencySymbol 提示词中要求模型使用的货币符号。
	CurrencySymbol string `json:"currency-symbol" mapstructure:"currency-symbol"`
	// SystemPromptFile 自定义系统提示词文件，必须包含 {context}。
	SystemPromptFile string `json:"system-prompt-file" mapstructure:"system-prompt-file"`
	// RetrievalTimeout 检索步骤超时。
	RetrievalTimeout time.Duration `json:"retrieval-timeout" mapstructure:"retrieval-timeout"`
	// GenerationTimeout 生成步骤超时。
	GenerationTimeout time.Duration `json:"generation-timeout" mapstructure:"generation-timeout"`
	// DefaultSession 旧版 /chat 接口使用的会话 ID。
	DefaultSession string `json:"default-session" mapstructure:"default-session"`
	// Preload 内存存储模式下启动时索引的 CSV 文件。
	Preload []string `json:"preload" mapstructure:"preload"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Collection:        "ecommerce-chatbot-project",
		EmbeddingDim:      4096,
		TopK:              5,
		MinScore:          0.5,
		CandidateLimit:    100,
		MaxChunkChars:     512,
		CurrencySymbol:    "£",
		RetrievalTimeout:  20 * time.Second,
		GenerationTimeout: 60 * time.Second,
		DefaultSession:    "chat_1",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "rag."
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Vector collection name.")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Maximum number of retrieved chunks, 0 for no cap.")
	fs.Float32Var(&o.MinScore, p+"min-score", o.MinScore, "Minimum cosine similarity for a retrieved chunk.")
	fs.IntVar(&o.CandidateLimit, p+"candidate-limit", o.CandidateLimit, "Rows requested from the store when top-k is 0.")
	fs.IntVar(&o.MaxChunkChars, p+"max-chunk-chars", o.MaxChunkChars, "Maximum characters per indexed chunk.")
	fs.StringVar(&o.CurrencySymbol, p+"currency-symbol", o.CurrencySymbol, "Currency symbol the assistant must use.")
	fs.StringVar(&o.SystemPromptFile, p+"system-prompt-file", o.SystemPromptFile, "File holding a custom system prompt with a {context} slot.")
	fs.DurationVar(&o.RetrievalTimeout, p+"retrieval-timeout", o.RetrievalTimeout, "Timeout of the retrieval step.")
	fs.DurationVar(&o.GenerationTimeout, p+"generation-timeout", o.GenerationTimeout, "Timeout of the generation step.")
	fs.StringVar(&o.DefaultSession, p+"default-session", o.DefaultSession, "Session id used by the legacy /chat route.")
	fs.StringSliceVar(&o.Preload, p+"preload", o.Preload, "CSV files indexed at startup when the memory store is used.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if strings.TrimSpace(o.Collection) == "" {
		errs = append(errs, fmt.Errorf("rag.collection is required"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must be positive"))
	}
	if o.TopK < 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must not be negative"))
	}
	if o.MinScore < -1 || o.MinScore > 1 {
		errs = append(errs, fmt.Errorf("rag.min-score must be within [-1, 1]"))
	}
	if o.TopK == 0 && o.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rag.candidate-limit must be positive when top-k is 0"))
	}
	if o.MaxChunkChars <= 0 {
		errs = append(errs, fmt.Errorf("rag.max-chunk-chars must be positive"))
	}
	if o.RetrievalTimeout <= 0 || o.GenerationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag timeouts must be positive"))
	}
	if o.DefaultSession == "" {
		errs = append(errs, fmt.Errorf("rag.default-session is required"))
	}
	return errs
}
