package store

import (
	"context"
	"fmt"

	"github.com/kart-io/catalog-chat/pkg/component/milvus"
)

var _ VectorStore = (*MilvusStore)(nil)

// MilvusStore 基于 Milvus 的向量存储，集合结构由 milvus 组件固定。
type MilvusStore struct {
	client *milvus.Client
}

func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

func (s *MilvusStore) CreateCollection(ctx context.Context, config *CollectionConfig) error {
	return s.client.EnsureCollection(ctx, config.Name, config.Description, config.Dimension)
}

func (s *MilvusStore) Upsert(ctx context.Context, collection string, chunks []*Chunk) error {
	rows := make([]milvus.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		rows = append(rows, milvus.Chunk{
			ID:      c.ID,
			Source:  c.Source,
			Row:     int64(c.Row),
			Content: c.Content,
			Vector:  c.Embedding,
		})
	}
	return s.client.Upsert(ctx, collection, rows)
}

// Search Milvus 只按 topK 截断，minScore 在这里过滤。
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int, minScore float32) ([]*SearchResult, error) {
	hits, err := s.client.Search(ctx, collection, embedding, topK)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		results = append(results, &SearchResult{
			ID:      h.ID,
			Source:  h.Source,
			Row:     int(h.Row),
			Content: h.Content,
			Score:   h.Score,
		})
	}
	return results, nil
}

func (s *MilvusStore) GetStats(ctx context.Context, collection string) (int64, error) {
	return s.client.Count(ctx, collection)
}

func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
