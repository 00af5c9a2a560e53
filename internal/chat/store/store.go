package store

import "context"

// Chunk 由一行商品记录渲染得到的文档块。
type Chunk struct {
	ID        string // 来源路径与行号的指纹
	Source    string
	Row       int // 数据行号，从 1 开始，不含表头
	Content   string
	Embedding []float32
}

// SearchResult 一条检索结果，Score 为余弦相似度。
type SearchResult struct {
	ID      string
	Source  string
	Row     int
	Content string
	Score   float32
}

// CollectionConfig 描述一个文档块集合。
type CollectionConfig struct {
	Name        string
	Description string
	Dimension   int
}

// VectorStore 文档块向量存储。
type VectorStore interface {
	// CreateCollection 集合已存在时不做修改。
	CreateCollection(ctx context.Context, config *CollectionConfig) error

	// Upsert 相同 ID 覆盖旧数据，返回时写入的数据即可检索。
	Upsert(ctx context.Context, collection string, chunks []*Chunk) error

	// Search 返回相似度不低于 minScore 的至多 topK 个结果，按分数降序。
	Search(ctx context.Context, collection string, embedding []float32, topK int, minScore float32) ([]*SearchResult, error)

	// GetStats 返回集合中的文档块数量。
	GetStats(ctx context.Context, collection string) (int64, error)

	Close(ctx context.Context) error
}
