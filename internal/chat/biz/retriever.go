package biz

import (
	"context"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-chat/internal/chat/store"
	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// Collection 集合名称。
	Collection string
	// TopK 返回的结果数量，0 表示不限制。
	TopK int
	// MinScore 最低余弦相似度。
	MinScore float32
	// CandidateLimit TopK 为 0 时向存储请求的数量。
	CandidateLimit int
}

// RetrievalResult 表示检索结果，按分数降序排列。
type RetrievalResult struct {
	// Query 原始查询。
	Query string
	// Results 检索结果列表。
	Results []*store.SearchResult
}

// Texts 返回结果中的文档块文本。
func (r *RetrievalResult) Texts() []string {
	if r == nil {
		return nil
	}
	texts := make([]string, len(r.Results))
	for i, res := range r.Results {
		texts[i] = res.Content
	}
	return texts
}

// Retriever 负责文档检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

func (r *Retriever) limit() int {
	if r.config.TopK > 0 {
		return r.config.TopK
	}
	if r.config.CandidateLimit > 0 {
		return r.config.CandidateLimit
	}
	return 100
}

// Retrieve 执行检索。没有满足阈值的结果时返回空结果而不是错误。
func (r *Retriever) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	// 1. 查询向量化
	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrRetrieval.WithCause(err)
	}

	// 2. 向量检索
	results, err := r.store.Search(ctx, r.config.Collection, embedding, r.limit(), r.config.MinScore)
	if err != nil {
		return nil, errors.ErrRetrieval.WithCause(err)
	}

	// 3. 再次过滤、排序并截断，不依赖具体存储的行为
	filtered := make([]*store.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Score >= r.config.MinScore {
			filtered = append(filtered, res)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if r.config.TopK > 0 && len(filtered) > r.config.TopK {
		filtered = filtered[:r.config.TopK]
	}

	logger.Debugw("retrieval completed", "candidates", len(results), "results", len(filtered))

	return &RetrievalResult{
		Query:   query,
		Results: filtered,
	}, nil
}
